package transport

import "sync"

// InMemoryTransport is a Transport backed by a channel instead of a socket,
// used to test two Connections talking to each other, or to test one
// Connection's output without a real transport at all.
type InMemoryTransport struct {
	out chan []byte

	closeLock sync.Mutex
	closed    bool
}

// InMemoryTransportPair is two InMemoryTransport values whose outbound
// channels feed each other's inbound side. A test drains each Outbound()
// channel into the peer Connection's Feed to complete the loop.
type InMemoryTransportPair struct {
	Client *InMemoryTransport
	Server *InMemoryTransport
}

// NewInMemoryTransportPair creates a connected pair. The channel buffer is
// large enough that ordinary tests never block on it.
func NewInMemoryTransportPair() *InMemoryTransportPair {
	return &InMemoryTransportPair{
		Client: &InMemoryTransport{out: make(chan []byte, 64)},
		Server: &InMemoryTransport{out: make(chan []byte, 64)},
	}
}

// SendRaw implements connection.Transport by publishing data on the
// transport's outbound channel.
func (t *InMemoryTransport) SendRaw(data []byte) error {
	t.closeLock.Lock()
	closed := t.closed
	t.closeLock.Unlock()
	if closed {
		return ErrClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.out <- cp
	return nil
}

// Close implements connection.Transport. It is idempotent and does not
// close the outbound channel — the peer side may still be draining it.
func (t *InMemoryTransport) Close() error {
	t.closeLock.Lock()
	defer t.closeLock.Unlock()
	t.closed = true
	return nil
}

// Outbound returns the channel of byte slices this transport has sent,
// each one a complete newline-terminated response line.
func (t *InMemoryTransport) Outbound() <-chan []byte {
	return t.out
}
