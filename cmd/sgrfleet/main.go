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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sglre6355/sgrfleet/internal/bot"
	"github.com/sglre6355/sgrfleet/internal/metrics"
	_ "github.com/sglre6355/sgrfleet/internal/modules/status"
)

// version is set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0" ./cmd/sgrfleet
var version = "dev"

const metricsShutdownTimeout = 5 * time.Second

func main() {
	// Configure JSON logging until the configured level is known
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := bot.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))
	slog.Info("starting sgrfleet", "version", version, "accounts", len(cfg.DiscordAccounts))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create and configure bot
	b := bot.NewBot(cfg)
	b.LoadModules()

	if cfg.MetricsAddr != "" {
		srv, err := serveMetrics(cfg.MetricsAddr, b)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("failed to shutdown metrics server", "error", err)
			}
		}()
	}

	// Start bot
	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- b.Wait(ctx)
	}()

	// Wait for shutdown signal or for every session to go away
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		slog.Info("received termination signal, shutting down", "signal", sig.String())
	case err := <-waitDone:
		if err != nil {
			slog.Warn("stopped waiting for sessions", "error", err)
		}
		slog.Info("all sessions disconnected, shutting down")
	}
	cancel()

	if err := b.Stop(); err != nil {
		slog.Error("failed to shutdown", "error", err)
	}

	slog.Info("completed bot shutdown")
	return nil
}

// serveMetrics registers the fleet gauges and serves /metrics on addr.
func serveMetrics(addr string, b *bot.Bot) (*http.Server, error) {
	if err := metrics.RegisterFleetGauges(prometheus.DefaultRegisterer, b.Sessions()); err != nil {
		return nil, fmt.Errorf("failed to register fleet gauges: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	return srv, nil
}
