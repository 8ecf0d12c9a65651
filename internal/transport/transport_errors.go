package transport

import "github.com/cockroachdb/errors"

// ErrClosed is returned by SendRaw (and surfaced through the in-memory
// pair) when the transport has already been closed.
var ErrClosed = errors.New("transport: closed")
