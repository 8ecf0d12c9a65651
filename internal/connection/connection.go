// Package connection ties the arena, buffer, framer, and dispatcher
// together into the engine's single public entry point: a Connection bound
// to one Transport for its whole lifetime.
package connection

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/linerpc/linerpc/internal/allocshim"
	"github.com/linerpc/linerpc/internal/arena"
	"github.com/linerpc/linerpc/internal/buffer"
	"github.com/linerpc/linerpc/internal/config"
	"github.com/linerpc/linerpc/internal/dispatch"
	"github.com/linerpc/linerpc/internal/framer"
	"github.com/linerpc/linerpc/internal/fsm"
	"github.com/linerpc/linerpc/internal/logging"
	"github.com/linerpc/linerpc/internal/wire"
)

// Transport is the capability a Connection needs from its caller: a way to
// push framed bytes out, and a way to tear the underlying channel down. The
// engine never dials, listens, or owns a socket.
type Transport interface {
	SendRaw(data []byte) error
	Close() error
}

const (
	stateOpen  fsm.State = "open"
	stateClosed fsm.State = "closed"

	eventClose fsm.Event = "close"
)

// Connection is one JSON-RPC peer: an inbound buffer, a per-message arena,
// and the callbacks that decide how requests and notifications are
// answered. It is not safe for concurrent use: it takes no locks, so Feed,
// SendResult, SendError and Close must be called from one goroutine at a
// time.
type Connection struct {
	id        string
	ctx       context.Context
	transport Transport
	callbacks *dispatch.Callbacks
	settings  *config.Settings
	logger    logging.Logger

	buf    *buffer.Buffer
	frame  *framer.Framer
	arena  *arena.Arena
	states fsm.FSM

	opened bool
}

// New creates a Connection bound to transport, opens it (invoking
// callbacks.OnOpen exactly once), and returns it ready to receive bytes via
// Feed.
func New(ctx context.Context, transport Transport, callbacks *dispatch.Callbacks, settings *config.Settings, logger logging.Logger) (*Connection, error) {
	if transport == nil {
		return nil, errors.New("connection: transport is required")
	}
	if settings == nil {
		settings = config.New()
	}
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	if callbacks == nil {
		callbacks = &dispatch.Callbacks{}
	}

	a, err := arena.New(settings.Limits.ArenaBytes)
	if err != nil {
		return nil, errors.Wrap(err, "connection: creating arena")
	}

	id := uuid.NewString()
	c := &Connection{
		id:        id,
		ctx:       ctx,
		transport: transport,
		callbacks: callbacks,
		settings:  settings,
		logger:    logger.WithField("conn_id", id),
		buf:       buffer.New(settings.Limits.InitialBufferCap, settings.Limits.MaxBufferBytes),
		frame:     framer.New(settings.Limits.MaxMessageBytes),
		arena:     a,
	}

	c.states = fsm.NewFSM(stateOpen, c.logger)
	c.states.AddTransition(fsm.Transition{
		From:  []fsm.State{stateOpen},
		To:    stateClosed,
		Event: eventClose,
		Action: func(ctx context.Context, _ fsm.Event, _ interface{}) error {
			if allocshim.Current() == c.arena {
				// Bind nil without ending the scope: ending it would restore
				// the binding to this connection's arena.
				allocshim.Begin(nil)
			}
			if c.callbacks.OnClose != nil {
				c.callbacks.OnClose(ctx)
			}
			return nil
		},
	})
	if err := c.states.Build(); err != nil {
		return nil, errors.Wrap(err, "connection: building state machine")
	}

	c.opened = true
	if callbacks.OnOpen != nil {
		callbacks.OnOpen(ctx)
	}
	c.logger.Info("connection opened")
	return c, nil
}

// ID returns the connection's unique identifier.
func (c *Connection) ID() string { return c.id }

// Context returns the context the connection was created with — the Go
// analogue of the reference implementation's opaque per-connection
// user_data, retrievable from handlers via conn_get_context.
func (c *Connection) Context() context.Context { return c.ctx }

// IsOpen reports whether the connection has not yet been closed.
func (c *Connection) IsOpen() bool {
	return c.states.CurrentState() == stateOpen
}

// Close transitions the connection to CLOSED and closes its transport. It
// is idempotent: OnClose runs only on the first call; every call closes the
// transport again, relying on the transport's own Close being idempotent.
func (c *Connection) Close() error {
	if c.IsOpen() {
		if err := c.states.Transition(c.ctx, eventClose, nil); err != nil {
			c.logger.Error("error closing connection", "error", err)
		}
	}
	return c.transport.Close()
}

// Feed delivers newly-received bytes to the connection. It extracts every
// complete line now available, dispatches each one under its own arena
// scope, and sends any resulting response. An oversize message or buffer
// closes the connection after notifying the peer, matching the reference
// implementation's fail-closed framing behavior.
func (c *Connection) Feed(data []byte) error {
	if !c.IsOpen() {
		return errors.New("connection: feed after close")
	}

	if err := c.buf.Append(data); err != nil {
		fault := wire.Classify(errors.New("Request too large"), wire.CategoryTransport, wire.CodeInvalidRequest)
		c.sendRaw(c.classifiedError(nil, fault, "inbound buffer exceeded maximum size, closing connection"))
		return c.Close()
	}

	for {
		line, ok, err := c.frame.Next(c.buf)
		if err != nil {
			fault := wire.Classify(errors.New("Request too large"), wire.CategoryTransport, wire.CodeInvalidRequest)
			c.sendRaw(c.classifiedError(nil, fault, "message exceeded maximum size, closing connection"))
			return c.Close()
		}
		if !ok {
			return nil
		}

		c.dispatchLine(line)
	}
}

func (c *Connection) dispatchLine(line []byte) {
	scope := allocshim.Begin(c.arena)
	defer scope.End()

	out, err := dispatch.ProcessLine(c.ctx, line, c.callbacks)
	if err != nil {
		fault := wire.Classify(err, wire.CategoryInternal, wire.CodeInternalError)
		c.logger.Error("failed to build response", "error", fault, "category", wire.GetCategory(fault))
		return
	}
	if out == nil {
		return
	}
	if err := c.transport.SendRaw(append(out, '\n')); err != nil {
		c.logger.Error("failed to send response", "error", err)
	}
}

// classifiedError logs err under its category and builds a wire error
// response for id from it.
func (c *Connection) classifiedError(id json.RawMessage, err error, logMsg string) *wire.Message {
	if wire.GetCategory(err) == wire.CategoryTransport {
		c.logger.Warn(logMsg, "error", err)
	} else {
		c.logger.Error(logMsg, "error", err)
	}
	return &wire.Message{JSONRPC: wire.Version, ID: wire.CopyID(id), Error: wire.ToError(err)}
}

// sendRaw marshals and sends msg, logging (but not returning) any failure —
// used for the engine's own fail-closed notifications, which have nowhere
// better to report an error to.
func (c *Connection) sendRaw(msg *wire.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		fault := wire.Classify(err, wire.CategoryInternal, wire.CodeInternalError)
		c.logger.Error("failed to marshal outbound message", "error", fault)
		return
	}
	if err := c.transport.SendRaw(append(payload, '\n')); err != nil {
		c.logger.Error("failed to send message", "error", err)
	}
}

// SendResult sends an out-of-band successful response for id, outside the
// request/response cycle of Feed — for a handler that answers
// asynchronously, for example.
func (c *Connection) SendResult(id json.RawMessage, result json.RawMessage) error {
	scope := allocshim.Begin(c.arena)
	defer scope.End()

	payload, err := json.Marshal(wire.NewResult(id, result))
	if err != nil {
		return wire.Classify(errors.Wrap(err, "connection: marshaling result"), wire.CategoryInternal, wire.CodeInternalError)
	}
	return c.transport.SendRaw(append(payload, '\n'))
}

// SendError sends an out-of-band error response for id.
func (c *Connection) SendError(id json.RawMessage, code int, message string) error {
	scope := allocshim.Begin(c.arena)
	defer scope.End()

	payload, err := json.Marshal(wire.NewError(id, code, message, nil))
	if err != nil {
		return wire.Classify(errors.Wrap(err, "connection: marshaling error"), wire.CategoryInternal, wire.CodeInternalError)
	}
	return c.transport.SendRaw(append(payload, '\n'))
}
