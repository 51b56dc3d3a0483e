package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/cloudnine-labs/presence/internal/catalog"
	"github.com/cloudnine-labs/presence/internal/config"
	"github.com/cloudnine-labs/presence/internal/events"
	"github.com/cloudnine-labs/presence/internal/gateway"
	"github.com/cloudnine-labs/presence/internal/logger"
	"github.com/cloudnine-labs/presence/internal/orchestrator"
	"github.com/cloudnine-labs/presence/internal/session"
	"github.com/cloudnine-labs/presence/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/presence.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logging; level is re-applied once config is loaded.
	log := slog.New(logger.NewHandler(os.Stdout, slog.LevelInfo))
	slog.SetDefault(log)

	log.Info("starting presence keeper",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if level := logger.ParseLevel(cfg.Log.Level); level != slog.LevelInfo {
		log = slog.New(logger.NewHandler(os.Stdout, level))
		slog.SetDefault(log)
	}

	// Catalogs and tokens are loaded and validated once; sessions treat
	// them as read-only afterwards.
	cat, err := catalog.Load(cfg.Data.ConfigPath(), cfg.Data.TracksPath(), cfg.Data.PhrasesPath())
	if err != nil {
		log.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	tokens, skipped, err := catalog.LoadTokens(cfg.Data.TokensPath())
	if err != nil {
		log.Error("failed to load tokens", "error", err)
		os.Exit(1)
	}
	if skipped > 0 {
		log.Warn("skipped invalid tokens", "count", skipped)
	}
	if len(tokens) == 0 {
		log.Error("no usable tokens", "file", cfg.Data.TokensPath())
		os.Exit(1)
	}

	log.Info("configuration loaded",
		"gateway", cfg.Gateway.URL,
		"tokens", len(tokens),
		"tracks", len(cat.Tracks),
		"phrases", len(cat.Phrases),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	orch := orchestrator.New(orchestrator.Config{
		Session:      sessionConfig(cfg),
		StartStagger: cfg.Session.StartStagger,
	}, cat, events.NewLogSink(log), log)

	orch.Start(ctx, tokens)

	stats := orch.Stats()
	printBanner(stats.Started, stats.Total)

	// Wait returns early only if every session has terminated on its own.
	waitDone := make(chan error, 1)
	go func() { waitDone <- orch.Wait() }()

	select {
	case <-ctx.Done():
		if err := <-waitDone; err != nil {
			logSessionError(log, err)
		}
	case err := <-waitDone:
		if err != nil {
			logSessionError(log, err)
		}
		log.Warn("all sessions have stopped")
	}

	log.Info("presence keeper stopped")
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		Gateway: gateway.Config{
			URL:          cfg.Gateway.URL,
			DialTimeout:  cfg.Gateway.DialTimeout,
			WriteTimeout: cfg.Gateway.WriteTimeout,
			StaleAfter:   cfg.Gateway.StaleAfter,
			BufferSize:   cfg.Gateway.BufferSize,
		},
		MaxRetries:       cfg.Session.MaxRetries,
		BaseBackoff:      cfg.Session.BaseBackoff,
		MaxBackoff:       cfg.Session.MaxBackoff,
		RotateAfter:      cfg.Session.RotateInterval,
		HandshakeTimeout: cfg.Session.HandshakeTimeout,
	}
}

func logSessionError(log *slog.Logger, err error) {
	if errors.Is(err, session.ErrRetriesExhausted) {
		log.Warn("some sessions exhausted their retries", "error", err)
		return
	}
	log.Error("session failure", "error", err)
}

func printBanner(hosted, total int) {
	banner := fmt.Sprintf(`
    ┌──────────────────────────────┐
    │  CloudNine Presence %-8s │
    └──────────────────────────────┘
      Hosted: %d/%d  |  %s
`, version.Version, hosted, total, time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	color.New(color.FgCyan, color.Bold).Fprintln(os.Stdout, banner)
}
