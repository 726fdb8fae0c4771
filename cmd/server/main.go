package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gamehubhq/relay-server/internal/relay"
	"github.com/gamehubhq/relay-server/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires configuration, logger, relay, and gateway together and manages
// the server lifecycle so deferred cleanup always executes before exit.
func run() error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := newLogger(cfg.LogLevel)

	rly := relay.New(log)
	gateway := server.NewGateway(cfg, rly, log)
	gateway.Start()

	httpServer := server.CreateServer(cfg.Port, gateway.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer)
	}()
	log.Info("relay listening", "addr", cfg.Port)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		log.Warn("http server shutdown", "error", err)
	}
	if err := gateway.Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Warn("gateway shutdown", "error", err)
	}
	log.Info("shutdown complete")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
