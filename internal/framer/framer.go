// Package framer splits a connection's inbound buffer into newline-delimited
// messages, the only framing this engine supports.
package framer

import (
	"bytes"

	"github.com/cockroachdb/errors"

	"github.com/linerpc/linerpc/internal/buffer"
)

// ErrMessageTooLarge is returned by Next when a single line (with or
// without a terminating newline yet seen) has already grown past
// maxMessageBytes. The caller must close the connection: the buffer offers
// no way to recover a consistent framing position from an oversize line.
var ErrMessageTooLarge = errors.New("framer: message exceeds maximum size")

// Framer extracts complete lines from a Buffer, tolerating a trailing \r
// before the \n and skipping blank lines.
type Framer struct {
	maxMessageBytes int
}

// New creates a Framer enforcing maxMessageBytes per line.
func New(maxMessageBytes int) *Framer {
	return &Framer{maxMessageBytes: maxMessageBytes}
}

// Next extracts the next line from buf, if one is complete.
//
//   - ok == true: line holds a non-empty message with no trailing
//     terminator; the bytes belong to the caller and buf has already
//     consumed them.
//   - ok == false, err == nil: no complete line is buffered yet (including
//     a blank line that was consumed and skipped); the caller should read
//     more bytes and feed Next again, or stop if the source is exhausted.
//   - err == ErrMessageTooLarge: the line (complete or not) exceeds the
//     configured maximum; the connection must close.
func (f *Framer) Next(buf *buffer.Buffer) (line []byte, ok bool, err error) {
	for {
		data := buf.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			if len(data) > f.maxMessageBytes {
				return nil, false, ErrMessageTooLarge
			}
			return nil, false, nil
		}

		raw := data[:idx]
		raw = bytes.TrimSuffix(raw, []byte{'\r'})
		buf.Consume(idx + 1)

		if len(raw) == 0 {
			continue
		}
		if len(raw) > f.maxMessageBytes {
			return nil, false, ErrMessageTooLarge
		}

		out := make([]byte, len(raw))
		copy(out, raw)
		return out, true, nil
	}
}
