// Package linerpc is the public surface of the engine: a thin re-export of
// internal/connection so an embedder depends on one import path instead of
// reaching into internal/*.
package linerpc

import (
	"context"

	"github.com/linerpc/linerpc/internal/config"
	"github.com/linerpc/linerpc/internal/connection"
	"github.com/linerpc/linerpc/internal/dispatch"
	"github.com/linerpc/linerpc/internal/logging"
	"github.com/linerpc/linerpc/internal/schema"
)

// Connection is one JSON-RPC peer bound to a Transport for its lifetime.
type Connection = connection.Connection

// Transport is the capability a Connection needs from its caller.
type Transport = connection.Transport

// Callbacks are the hooks an embedder supplies to answer requests and
// notifications, and to observe open/close.
type Callbacks = dispatch.Callbacks

// Response is what an OnRequest callback returns.
type Response = dispatch.Response

// Settings carries the buffer/arena size limits and log level.
type Settings = config.Settings

// LimitsConfig is the size-limit subset of Settings.
type LimitsConfig = config.LimitsConfig

// SchemaRegistry lets an embedder register a JSON Schema for a method's params.
type SchemaRegistry = schema.Registry

// Logger is the logging interface callbacks and the engine log through.
type Logger = logging.Logger

// DefaultSettings returns a Settings populated with the engine's default
// limits and log level.
func DefaultSettings() *Settings {
	return config.New()
}

// LoadSettings reads a YAML file overlaying DefaultSettings.
func LoadSettings(path string) (*Settings, error) {
	return config.Load(path)
}

// NewRegistry creates an empty SchemaRegistry.
func NewRegistry() *SchemaRegistry {
	return schema.NewRegistry()
}

// New opens a Connection bound to transport, invoking callbacks.OnOpen once.
func New(ctx context.Context, transport Transport, callbacks *Callbacks, settings *Settings, logger Logger) (*Connection, error) {
	return connection.New(ctx, transport, callbacks, settings, logger)
}
