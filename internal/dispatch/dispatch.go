// Package dispatch implements the JSON-RPC 2.0 envelope validator and the
// request/notification/batch dispatcher built on top of it.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/linerpc/linerpc/internal/schema"
	"github.com/linerpc/linerpc/internal/wire"
)

// Response is populated by a request handler to describe the outcome of
// one call. A zero-value Response with Handled left false tells the
// dispatcher the method is unknown.
type Response struct {
	Result  json.RawMessage
	Code    int
	Message string
	Handled bool
}

// Callbacks holds the connection's event hooks. Every field is optional;
// a nil OnRequest answers every request with Method not found, a nil
// OnNotification silently drops every notification.
type Callbacks struct {
	OnOpen         func(ctx context.Context)
	OnClose        func(ctx context.Context)
	OnRequest      func(ctx context.Context, method string, params json.RawMessage) Response
	OnNotification func(ctx context.Context, method string, params json.RawMessage)

	// Schema, if set, is consulted before OnRequest/OnNotification runs: a
	// method with a registered schema whose params fail validation is
	// treated the same as a structurally invalid params value (§4.5) —
	// Invalid Params for a request, silent drop for a notification.
	Schema *schema.Registry
}

// ProcessLine validates and dispatches one framed line, which may be a
// single JSON-RPC object or a batch array. It returns the serialized
// response payload to send back (without a trailing newline), or nil if
// the line produced no response at all — the case for a lone notification
// or an all-notification batch.
func ProcessLine(ctx context.Context, raw []byte, cb *Callbacks) (json.RawMessage, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		return processBatch(ctx, raw, cb)
	case '{':
		// raw is only guaranteed to start with '{'; it may still be
		// syntactically broken JSON, so a failure here is a genuine parse
		// error.
		msg := processObject(ctx, raw, cb, true)
		if msg == nil {
			return nil, nil
		}
		return json.Marshal(msg)
	default:
		// Not an object or array: undecodable bytes are a Parse error, a
		// well-formed scalar (number, string, null...) is an Invalid Request.
		if !json.Valid(trimmed) {
			return json.Marshal(wire.NewError(nil, wire.CodeParseError, "", nil))
		}
		return json.Marshal(wire.NewError(nil, wire.CodeInvalidRequest, "", nil))
	}
}

func processBatch(ctx context.Context, raw []byte, cb *Callbacks) (json.RawMessage, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		out, merr := json.Marshal(wire.NewError(nil, wire.CodeParseError, "", nil))
		return out, merr
	}

	if len(elements) == 0 {
		return json.Marshal(wire.NewError(nil, wire.CodeInvalidRequest, "", nil))
	}

	responses := make([]*wire.Message, 0, len(elements))
	for _, elem := range elements {
		// elem already parsed as a valid JSON value when elements was
		// unmarshaled above, so any further failure is a shape problem
		// (not an object, or a field of the wrong type), never a syntax
		// error — Invalid Request, not Parse error.
		if msg := processObject(ctx, elem, cb, false); msg != nil {
			responses = append(responses, msg)
		}
	}

	if len(responses) == 0 {
		return nil, nil
	}
	return json.Marshal(responses)
}

// processObject validates and dispatches a single JSON-RPC object. It
// returns nil when no response should be sent: a well-formed notification,
// or a notification whose params were malformed (dropped silently rather
// than answered, since a notification has no id to answer to).
// syntaxErrorIsParseError selects the code used when raw cannot be decoded
// at all: true for a line fresh off the wire, false for an already-parsed
// batch element (where decode failure only ever means "not an object").
func processObject(ctx context.Context, raw json.RawMessage, cb *Callbacks, syntaxErrorIsParseError bool) *wire.Message {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		if syntaxErrorIsParseError {
			return wire.NewError(nil, wire.CodeParseError, "", nil)
		}
		return wire.NewError(nil, wire.CodeInvalidRequest, "", nil)
	}
	obj, ok := generic.(map[string]interface{})
	if !ok {
		return wire.NewError(nil, wire.CodeInvalidRequest, "", nil)
	}

	var msg wire.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return wire.NewError(nil, wire.CodeInvalidRequest, "", nil)
	}

	if msg.JSONRPC != wire.Version {
		return wire.NewError(msg.ID, wire.CodeInvalidRequest, "", nil)
	}
	// A missing or non-string "method" is rejected; an explicitly empty
	// method name ("method":"") is a well-formed (if unusual) request and
	// is left to OnRequest/Method not found, matching the reference
	// implementation's json_object_get_string check.
	if methodVal, present := obj["method"]; !present {
		return wire.NewError(msg.ID, wire.CodeInvalidRequest, "", nil)
	} else if _, isString := methodVal.(string); !isString {
		return wire.NewError(msg.ID, wire.CodeInvalidRequest, "", nil)
	}
	if !msg.IDIsValid() {
		return wire.NewError(nil, wire.CodeInvalidRequest, "", nil)
	}

	hasID := msg.HasID()

	if !msg.ParamsIsValid() {
		if !hasID {
			return nil
		}
		return wire.NewError(msg.ID, wire.CodeInvalidParams, "", nil)
	}

	if cb != nil && cb.Schema != nil && cb.Schema.Validate(msg.Method, msg.Params) != nil {
		if !hasID {
			return nil
		}
		return wire.NewError(msg.ID, wire.CodeInvalidParams, "", nil)
	}

	if !hasID {
		if cb != nil && cb.OnNotification != nil {
			cb.OnNotification(ctx, msg.Method, msg.Params)
		}
		return nil
	}

	if cb == nil || cb.OnRequest == nil {
		return wire.NewError(msg.ID, wire.CodeMethodNotFound, "", nil)
	}

	resp := cb.OnRequest(ctx, msg.Method, msg.Params)
	if !resp.Handled {
		return wire.NewError(msg.ID, wire.CodeMethodNotFound, "", nil)
	}
	if resp.Code != 0 {
		return wire.NewError(msg.ID, resp.Code, resp.Message, nil)
	}
	return wire.NewResult(msg.ID, resp.Result)
}
