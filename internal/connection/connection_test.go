package connection_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linerpc/linerpc/internal/config"
	"github.com/linerpc/linerpc/internal/connection"
	"github.com/linerpc/linerpc/internal/dispatch"
	"github.com/linerpc/linerpc/internal/wire"
)

// recorder is a connection.Transport double that records every sent line
// and whether Close was called, without any real I/O.
type recorder struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (r *recorder) SendRaw(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	r.sent = append(r.sent, cp)
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) lines() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *recorder) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func echoCallbacks() (*dispatch.Callbacks, *int) {
	notifications := 0
	cb := &dispatch.Callbacks{
		OnRequest: func(_ context.Context, method string, params json.RawMessage) dispatch.Response {
			switch method {
			case "ping":
				return dispatch.Response{Handled: true, Result: json.RawMessage(`"pong"`)}
			case "echo":
				return dispatch.Response{Handled: true, Result: params}
			case "add":
				var nums []float64
				if err := json.Unmarshal(params, &nums); err != nil {
					return dispatch.Response{Handled: true, Code: wire.CodeInvalidParams, Message: "bad params"}
				}
				sum := 0.0
				for _, n := range nums {
					sum += n
				}
				out, _ := json.Marshal(sum)
				return dispatch.Response{Handled: true, Result: out}
			default:
				return dispatch.Response{}
			}
		},
		OnNotification: func(context.Context, string, json.RawMessage) {
			notifications++
		},
	}
	return cb, &notifications
}

func newTestConnection(t *testing.T, cb *dispatch.Callbacks, limits *config.LimitsConfig) (*connection.Connection, *recorder) {
	t.Helper()
	settings := config.New()
	if limits != nil {
		settings.Limits = *limits
	}
	rec := &recorder{}
	conn, err := connection.New(context.Background(), rec, cb, settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, rec
}

func TestFeedPingRoundTrip(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\n")))

	lines := rec.lines()
	require.Len(t, lines, 1)
	var resp wire.Message
	require.NoError(t, json.Unmarshal(lines[0], &resp))
	assert.Equal(t, `"pong"`, string(resp.Result))
	assert.Equal(t, "1", string(resp.ID))
	assert.Equal(t, byte('\n'), lines[0][len(lines[0])-1])
}

func TestFeedEchoRoundTrip(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte(`{"jsonrpc":"2.0","id":1,"method":"echo","params":{"a":[1,2,3]}}` + "\n")))

	var resp wire.Message
	require.NoError(t, json.Unmarshal(rec.lines()[0], &resp))
	assert.JSONEq(t, `{"a":[1,2,3]}`, string(resp.Result))
}

func TestFeedAddSumsParams(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte(`{"jsonrpc":"2.0","id":"abc","method":"add","params":[1,2,3]}` + "\n")))

	var resp wire.Message
	require.NoError(t, json.Unmarshal(rec.lines()[0], &resp))
	assert.Equal(t, "6", string(resp.Result))
	assert.Equal(t, `"abc"`, string(resp.ID))
}

func TestFeedNotificationProducesNoOutput(t *testing.T) {
	cb, notifications := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte(`{"jsonrpc":"2.0","method":"notify","params":["hello"]}` + "\n")))

	assert.Empty(t, rec.lines())
	assert.Equal(t, 1, *notifications)
}

func TestFeedParseErrorRepliesWithNullID(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte("not json\n")))

	lines := rec.lines()
	require.Len(t, lines, 1)
	var resp wire.Message
	require.NoError(t, json.Unmarshal(lines[0], &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, wire.CodeParseError, resp.Error.Code)
	assert.Equal(t, "null", string(resp.ID))
}

func TestFeedEmptyBatchIsInvalidRequest(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte("[]\n")))

	var resp wire.Message
	require.NoError(t, json.Unmarshal(rec.lines()[0], &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, wire.CodeInvalidRequest, resp.Error.Code)
}

func TestFeedBatchOfRequestsAndNotification(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	in := `[{"jsonrpc":"2.0","id":1,"method":"ping"},` +
		`{"jsonrpc":"2.0","method":"notify"},` +
		`{"jsonrpc":"2.0","id":2,"method":"nosuch"}]` + "\n"
	require.NoError(t, conn.Feed([]byte(in)))

	var responses []wire.Message
	require.NoError(t, json.Unmarshal(rec.lines()[0], &responses))
	require.Len(t, responses, 2)
	assert.Equal(t, `"pong"`, string(responses[0].Result))
	require.NotNil(t, responses[1].Error)
	assert.Equal(t, wire.CodeMethodNotFound, responses[1].Error.Code)
}

func TestFeedCRLFLineEndingParsesIdentically(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte("{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\r\n")))

	var resp wire.Message
	require.NoError(t, json.Unmarshal(rec.lines()[0], &resp))
	assert.Equal(t, `"pong"`, string(resp.Result))
}

func TestFeedEmptyLineIsSkippedSilently(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Feed([]byte("\r\n\n{\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"ping\"}\n")))

	assert.Len(t, rec.lines(), 1)
}

func TestFeedPartialSecondLineStaysBuffered(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	in := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n" + `{"jsonrpc":"2.0","id":2,"m`
	require.NoError(t, conn.Feed([]byte(in)))

	lines := rec.lines()
	require.Len(t, lines, 1)
	var resp wire.Message
	require.NoError(t, json.Unmarshal(lines[0], &resp))
	assert.Equal(t, "1", string(resp.ID))

	require.NoError(t, conn.Feed([]byte(`ethod":"ping"}` + "\n")))
	lines = rec.lines()
	require.Len(t, lines, 2)
	require.NoError(t, json.Unmarshal(lines[1], &resp))
	assert.Equal(t, "2", string(resp.ID))
}

func TestFeedOversizeMessageClosesConnection(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, &config.LimitsConfig{
		InitialBufferCap: 64,
		MaxMessageBytes:  32,
		MaxBufferBytes:   1024,
		ArenaBytes:       4096,
	})

	big := make([]byte, 64)
	for i := range big {
		big[i] = 'a'
	}
	err := conn.Feed(append(big, '\n'))
	require.NoError(t, err)

	assert.True(t, rec.isClosed())
	lines := rec.lines()
	require.Len(t, lines, 1)
	var resp wire.Message
	require.NoError(t, json.Unmarshal(lines[0], &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, wire.CodeInvalidRequest, resp.Error.Code)
	assert.False(t, conn.IsOpen())
}

func TestFeedOversizeBufferClosesConnection(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, &config.LimitsConfig{
		InitialBufferCap: 16,
		MaxMessageBytes:  1024,
		MaxBufferBytes:   32,
		ArenaBytes:       4096,
	})

	over := make([]byte, 64) // no newline: stays a partial, unterminated line
	err := conn.Feed(over)
	require.NoError(t, err)

	assert.True(t, rec.isClosed())
	assert.False(t, conn.IsOpen())
}

func TestFeedAfterCloseIsError(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, _ := newTestConnection(t, cb, nil)
	require.NoError(t, conn.Close())

	err := conn.Feed([]byte("{}\n"))
	assert.Error(t, err)
}

func TestCloseEmitsOnCloseOnce(t *testing.T) {
	closes := 0
	cb := &dispatch.Callbacks{OnClose: func(context.Context) { closes++ }}
	conn, _ := newTestConnection(t, cb, nil)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, 1, closes)
}

func TestSendResultOutOfBand(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.SendResult(json.RawMessage("7"), json.RawMessage(`"done"`)))

	var resp wire.Message
	require.NoError(t, json.Unmarshal(rec.lines()[0], &resp))
	assert.Equal(t, "7", string(resp.ID))
	assert.Equal(t, `"done"`, string(resp.Result))
}

func TestSendErrorOutOfBand(t *testing.T) {
	cb, _ := echoCallbacks()
	conn, rec := newTestConnection(t, cb, nil)

	require.NoError(t, conn.SendError(json.RawMessage("7"), wire.CodeInternalError, "boom"))

	var resp wire.Message
	require.NoError(t, json.Unmarshal(rec.lines()[0], &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", resp.Error.Message)
}
