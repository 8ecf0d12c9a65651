package framer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linerpc/linerpc/internal/buffer"
	"github.com/linerpc/linerpc/internal/framer"
)

func feed(t *testing.T, buf *buffer.Buffer, s string) {
	t.Helper()
	require.NoError(t, buf.Append([]byte(s)))
}

func TestNextExtractsCompleteLine(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, "{\"a\":1}\n")

	f := framer.New(1 << 20)
	line, ok, err := f.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, string(line))
	assert.Equal(t, 0, buf.Len())
}

func TestNextWaitsForMoreDataWithoutNewline(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, `{"a":1}`)

	f := framer.New(1 << 20)
	_, ok, err := f.Next(buf)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 7, buf.Len(), "unterminated bytes remain buffered")
}

func TestNextTrimsTrailingCR(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, "ping\r\n")

	f := framer.New(1 << 20)
	line, ok, err := f.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ping", string(line))
}

func TestNextSkipsBlankLines(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, "\n\nping\n")

	f := framer.New(1 << 20)
	line, ok, err := f.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ping", string(line))
}

func TestNextExtractsMultipleLinesOneAtATime(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, "a\nb\n")

	f := framer.New(1 << 20)
	line1, ok, err := f.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", string(line1))

	line2, ok, err := f.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", string(line2))

	_, ok, err = f.Next(buf)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNextRejectsOversizeCompleteLine(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, "123456789\n")

	f := framer.New(4)
	_, _, err := f.Next(buf)
	assert.ErrorIs(t, err, framer.ErrMessageTooLarge)
}

func TestNextRejectsOversizePartialLine(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, "123456789")

	f := framer.New(4)
	_, _, err := f.Next(buf)
	assert.ErrorIs(t, err, framer.ErrMessageTooLarge)
}

func TestNextExactlyAtLimitSucceeds(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	feed(t, buf, "1234\n")

	f := framer.New(4)
	line, ok, err := f.Next(buf)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1234", string(line))
}

func TestChunkedFeedIsIndependentOfByteBoundaries(t *testing.T) {
	buf := buffer.New(64, 1<<20)
	f := framer.New(1 << 20)

	chunks := []string{"pi", "ng", "\n", "ec", "ho\n"}
	var lines []string
	for _, c := range chunks {
		feed(t, buf, c)
		for {
			line, ok, err := f.Next(buf)
			require.NoError(t, err)
			if !ok {
				break
			}
			lines = append(lines, string(line))
		}
	}
	assert.Equal(t, []string{"ping", "echo"}, lines)
}
