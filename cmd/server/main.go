package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pauljones0/artist-push-bot/internal/config"
	"github.com/pauljones0/artist-push-bot/internal/feed"
	"github.com/pauljones0/artist-push-bot/internal/gateway"
	"github.com/pauljones0/artist-push-bot/internal/ledger"
	"github.com/pauljones0/artist-push-bot/internal/monitor"
	"github.com/pauljones0/artist-push-bot/internal/notifier"
	"github.com/pauljones0/artist-push-bot/internal/registry"
	"github.com/pauljones0/artist-push-bot/internal/server"
	"github.com/pauljones0/artist-push-bot/internal/source"
)

func main() {
	slog.Info("Starting Artist Push server...")
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	reg := registry.New()
	for _, raw := range cfg.Accounts {
		id, err := reg.Add(raw)
		if err != nil {
			slog.Warn("Ignoring invalid seed account", "raw", raw, "error", err)
			continue
		}
		slog.Info("Monitoring account", "account", id)
	}

	mailer, err := notifier.New(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPass, cfg.NotificationEmail)
	if err != nil {
		slog.Error("Critical error initializing email notifier", "error", err)
		os.Exit(1)
	}

	hub := gateway.NewHub()
	mon := monitor.New(
		reg,
		ledger.New(cfg.LedgerAccountCap),
		feed.New(cfg.FeedCap),
		buildSource(cfg),
		mailer,
		hub,
		monitor.Options{
			PollInterval:     cfg.PollInterval,
			FetchTimeout:     cfg.FetchTimeout,
			FetchConcurrency: cfg.FetchConcurrency,
		},
	)

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		mon.Run(monitorCtx)
	}()

	srv := server.New(mon, hub)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		stopMonitor()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	<-monitorDone
	slog.Info("Server stopped.")
}

// buildSource assembles the configured snapshot source. The mock fallback is
// an explicit opt-in, never a silent default.
func buildSource(cfg *config.Config) monitor.Source {
	var src monitor.Source
	switch cfg.SourceMode {
	case config.SourceMock:
		slog.Info("Using mock snapshot source")
		return source.NewMock()
	case config.SourceBrowser:
		slog.Info("Using headless-browser snapshot source")
		src = source.NewBrowser(cfg.FetchTimeout)
	default:
		slog.Info("Using Instagram public-endpoint snapshot source")
		src = source.NewInstagram(cfg.FetchTimeout)
	}
	if cfg.SourceMockFallback {
		slog.Warn("Mock fallback enabled: failed fetches will be replaced with generated data")
		src = source.WithMockFallback(src, source.NewMock())
	}
	return src
}
