package main

import (
	"context"
	"encoding/json"

	"github.com/linerpc/linerpc/internal/dispatch"
	"github.com/linerpc/linerpc/internal/logging"
	"github.com/linerpc/linerpc/internal/schema"
	"github.com/linerpc/linerpc/internal/wire"
)

// addParamsSchema requires params to be an array of numbers, matching the
// reference implementation's manual type check in main.c's add handler —
// expressed declaratively here to exercise internal/schema end to end.
const addParamsSchema = `{"type": "array", "items": {"type": "number"}}`

// newCallbacks builds the worked-example handlers the reference
// implementation's main.c ships: ping, echo, and add. They exist to give
// the engine a runnable demonstration, not as a framework for building
// real RPC services on top of.
func newCallbacks(logger logging.Logger) *dispatch.Callbacks {
	registry := schema.NewRegistry()
	if err := registry.Register("add", []byte(addParamsSchema)); err != nil {
		logger.Error("failed to register add params schema", "error", err)
	}

	return &dispatch.Callbacks{
		Schema: registry,
		OnOpen: func(context.Context) {
			logger.Info("connection opened")
		},
		OnClose: func(context.Context) {
			logger.Info("connection closed")
		},
		OnNotification: func(_ context.Context, method string, params json.RawMessage) {
			logger.Info("notification received", "method", method, "params", string(params))
		},
		OnRequest: func(_ context.Context, method string, params json.RawMessage) dispatch.Response {
			switch method {
			case "ping":
				return dispatch.Response{Handled: true, Result: json.RawMessage(`"pong"`)}
			case "echo":
				return echo(params)
			case "add":
				return add(params)
			default:
				return dispatch.Response{}
			}
		},
	}
}

// echo deep-copies params into the result, demonstrating the round-trip
// testable property from spec.md §8.
func echo(params json.RawMessage) dispatch.Response {
	if len(params) == 0 {
		return dispatch.Response{Handled: true, Result: json.RawMessage("null")}
	}
	cp := make(json.RawMessage, len(params))
	copy(cp, params)
	return dispatch.Response{Handled: true, Result: cp}
}

// add sums a numeric array param. The schema registry already rejects a
// non-array or non-numeric-element params value before this runs; the
// explicit unmarshal failure path below only guards against a registry
// that was never configured (schema is optional).
func add(params json.RawMessage) dispatch.Response {
	var nums []float64
	if err := json.Unmarshal(params, &nums); err != nil {
		return dispatch.Response{
			Handled: true,
			Code:    wire.CodeInvalidParams,
			Message: "params must be an array of numbers",
		}
	}

	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	result, _ := json.Marshal(sum)
	return dispatch.Response{Handled: true, Result: result}
}
