// Package transport implements the byte-in/byte-out channels the engine
// consumes through connection.Transport, plus the ambient glue — not part
// of the core — that pumps bytes from a real stream into a connection's
// Feed. The core never dials, listens, or chooses how bytes arrive; this
// package is where that choice lives for the stdio/NDJSON case.
package transport

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/linerpc/linerpc/internal/logging"
)

// readChunkSize is the buffer size used by Pump's raw reads. It has no
// relationship to MAX_MESSAGE_BYTES: the core's framer, not the transport,
// is responsible for finding line boundaries across however many chunks a
// message arrives in.
const readChunkSize = 4096

// Feeder is the subset of connection.Connection a Pump drives. Declaring it
// here instead of importing the connection package keeps this package
// usable against anything that accepts raw bytes, including test doubles.
type Feeder interface {
	Feed(data []byte) error
}

// NDJSONTransport sends newline-delimited JSON-RPC responses to a writer.
// It has no read side: Pump feeds inbound bytes to the Connection. It is
// the transport `cmd/server` binds to each accepted socket.
type NDJSONTransport struct {
	writer io.Writer
	closer io.Closer
	logger logging.Logger

	writeLock sync.Mutex
	closeLock sync.RWMutex
	closed    bool
}

// NewNDJSONTransport creates a transport that writes to w and closes c on
// Close. c may be nil if the underlying writer needs no explicit close
// (for example, a response recorder in a test).
func NewNDJSONTransport(w io.Writer, c io.Closer, logger logging.Logger) *NDJSONTransport {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &NDJSONTransport{
		writer: w,
		closer: c,
		logger: logger.WithField("component", "ndjson_transport"),
	}
}

// SendRaw implements connection.Transport. data is expected to already end
// in the engine's single trailing newline; the transport does not add or
// strip framing of its own.
func (t *NDJSONTransport) SendRaw(data []byte) error {
	t.closeLock.RLock()
	closed := t.closed
	t.closeLock.RUnlock()
	if closed {
		return ErrClosed
	}

	t.writeLock.Lock()
	defer t.writeLock.Unlock()
	n, err := t.writer.Write(data)
	if err == nil && n < len(data) {
		err = io.ErrShortWrite
	}
	return err
}

// Close implements connection.Transport. It is idempotent.
func (t *NDJSONTransport) Close() error {
	t.closeLock.Lock()
	defer t.closeLock.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Pump reads raw chunks from r and hands each to feed.Feed until r returns
// an error (including io.EOF) or ctx is done. It returns the error that
// ended the loop; io.EOF is reported as nil, the normal end of an input
// stream. The caller is responsible for closing the connection afterward.
func Pump(ctx context.Context, r io.Reader, feed Feeder, logger logging.Logger) error {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	br := bufio.NewReaderSize(r, readChunkSize)
	buf := make([]byte, readChunkSize)

	type readResult struct {
		n   int
		err error
	}

	for {
		resultCh := make(chan readResult, 1)
		go func() {
			n, err := br.Read(buf)
			resultCh <- readResult{n, err}
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-resultCh:
			if res.n > 0 {
				if err := feed.Feed(buf[:res.n]); err != nil {
					logger.Warn("feed rejected input, stopping pump", "error", err)
					return err
				}
			}
			if res.err != nil {
				if res.err == io.EOF {
					return nil
				}
				return res.err
			}
		}
	}
}
