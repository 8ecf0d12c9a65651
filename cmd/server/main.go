// Command linerpc-server is a minimal TCP listener around the engine: one
// Connection per accepted socket, each driven by its own NDJSON transport.
// The acceptor, signal handling, and flag parsing here are the external
// glue the core spec explicitly excludes — everything interesting happens
// in internal/connection.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/linerpc/linerpc/internal/config"
	"github.com/linerpc/linerpc/internal/logging"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address to listen on")
	configPath := flag.String("config", "", "path to a YAML config file overlaying the default limits")
	flag.Parse()

	logger := logging.NewSlogLogger(nil)

	settings := config.New()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config, using defaults", "error", err, "path", *configPath)
		} else {
			settings = loaded
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Error("failed to listen", "error", err, "addr", *addr)
		os.Exit(1)
	}
	defer ln.Close()
	logger.Info("listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		logger.Info("shutting down, closing listener")
		ln.Close()
	}()

	if err := acceptLoop(ctx, ln, settings, logger); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "accept loop exited:", err)
		os.Exit(1)
	}
}

// acceptLoop accepts connections until the listener closes (either from a
// real error or because ctx was canceled and main closed it for us).
func acceptLoop(ctx context.Context, ln net.Listener, settings *config.Settings, logger logging.Logger) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go serveConn(ctx, conn, settings, logger)
	}
}
