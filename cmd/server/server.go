package main

import (
	"context"
	"net"

	"github.com/linerpc/linerpc/internal/config"
	"github.com/linerpc/linerpc/internal/connection"
	"github.com/linerpc/linerpc/internal/logging"
	"github.com/linerpc/linerpc/internal/transport"
)

// serveConn drives one accepted socket end to end: build its transport,
// open a Connection bound to the example handlers, pump raw bytes from the
// socket into it until the peer disconnects, then tear the connection down.
func serveConn(ctx context.Context, sock net.Conn, settings *config.Settings, logger logging.Logger) {
	defer sock.Close()

	tr := transport.NewNDJSONTransport(sock, sock, logger)
	conn, err := connection.New(ctx, tr, newCallbacks(logger), settings, logger)
	if err != nil {
		logger.Error("failed to open connection", "error", err)
		return
	}
	defer conn.Close()

	if err := transport.Pump(ctx, sock, conn, logger); err != nil {
		logger.Warn("connection pump ended with error", "error", err)
	}
}
