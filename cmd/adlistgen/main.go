package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nyxdns/adlistgen/internal/adlist/common/log"
	"github.com/nyxdns/adlistgen/internal/adlist/config"
	"github.com/nyxdns/adlistgen/internal/adlist/domain"
	"github.com/nyxdns/adlistgen/internal/adlist/fetch"
	"github.com/nyxdns/adlistgen/internal/adlist/health"
	"github.com/nyxdns/adlistgen/internal/adlist/orchestrate"
)

const (
	version = "0.1.0-dev"
	appName = "adlistgen"

	defaultShutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	if err := log.Configure(cfg.Env, cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}
	// This binary runs once and exits, unlike a long-lived daemon, so any
	// log lines still sitting in zap's write buffer when main returns would
	// otherwise be lost.
	defer func() { _ = log.Sync() }()

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.Log.Level,
		"workers":   cfg.Fetch.Workers,
	}, "Starting adlistgen run")

	blockSources, err := sourcesFromEnv("ADLIST_BLOCK_SOURCES")
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Invalid ADLIST_BLOCK_SOURCES")
	}
	allowSources, err := sourcesFromEnv("ADLIST_ALLOW_SOURCES")
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Invalid ADLIST_ALLOW_SOURCES")
	}

	journal, err := health.New(cfg.Journal.Path)
	if err != nil {
		log.Fatal(map[string]any{"error": err.Error()}, "Failed to open source health journal")
	}
	defer journal.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info(map[string]any{"signal": sig.String()}, "Shutdown signal received")
		cancel()
	}()

	runDone := make(chan error, 1)
	go func() {
		_, err := orchestrate.Run(ctx, cfg, orchestrate.Options{
			Transport:     fetch.NewHTTPTransport(),
			Journal:       journal,
			BlockProgress: fetch.NoopProgress,
			AllowProgress: fetch.NoopProgress,
		}, blockSources, allowSources)
		runDone <- err
	}()

	select {
	case err := <-runDone:
		if err != nil {
			log.Fatal(map[string]any{"error": err.Error()}, "adlistgen run failed")
		}
		log.Info(nil, "adlistgen run completed")
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer shutdownCancel()

		select {
		case err := <-runDone:
			if err != nil {
				log.Warn(map[string]any{"error": err.Error()}, "adlistgen run ended with error during shutdown")
			}
		case <-shutdownCtx.Done():
			log.Warn(map[string]any{"timeout": defaultShutdownTimeout}, "Shutdown timeout exceeded; exiting without waiting for run")
		}
	}
}

// sourcesFromEnv parses a comma-separated list of URLs/paths from the named
// environment variable into Sources. An entry is treated as remote when it
// has an http(s) scheme, local otherwise. An unset or empty variable yields
// no sources, not an error.
func sourcesFromEnv(name string) ([]domain.Source, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	sources := make([]domain.Source, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
			s, err := domain.NewRemoteSource(p)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			sources = append(sources, s)
			continue
		}
		s, err := domain.NewLocalSource(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sources = append(sources, s)
	}
	return sources, nil
}
