// Package main runs the archivegraph consistency engine as a standalone
// process: an in-memory entity store with its trash subsystem, an optional
// JetStream KV mirror, and a Prometheus metrics endpoint.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/c360/archivegraph/config"
	"github.com/c360/archivegraph/metric"
	"github.com/c360/archivegraph/natsclient"
	"github.com/c360/archivegraph/persist"
	"github.com/c360/archivegraph/store"
	"github.com/c360/archivegraph/trash"
)

const (
	Version = "0.1.0"
	appName = "archivegraph"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		logger.Info("configuration is valid")
		return nil
	}

	logger.Info("starting archivegraph",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"persist_enabled", cfg.Persist.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewRegistry()

	st, err := store.New(store.Dependencies{
		Logger:      logger,
		Metrics:     registry,
		MaxRefDepth: cfg.Store.MaxRefDepth,
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	bin, err := trash.NewBin(trash.Dependencies{
		Store:   st,
		Logger:  logger,
		Metrics: registry,
		Config: trash.Config{
			MaxItems:           cfg.Trash.MaxItems,
			Retention:          cfg.Trash.Retention,
			ExpiringSoonWindow: cfg.Trash.ExpiringSoonWindow,
		},
	})
	if err != nil {
		return fmt.Errorf("create trash bin: %w", err)
	}

	cleaner := trash.NewCleaner(bin, cfg.Trash.CleanupSchedule, logger)
	if err := cleaner.Start(ctx); err != nil {
		return fmt.Errorf("start trash cleaner: %w", err)
	}
	defer cleaner.Stop()

	if cfg.Persist.Enabled {
		stopPersist, err := startPersistence(ctx, cfg, logger, registry, st)
		if err != nil {
			return err
		}
		defer stopPersist()
	}

	if cliCfg.MetricsPort > 0 {
		startMetricsServer(ctx, logger, registry, cliCfg.MetricsPort)
	}

	logger.Info("archivegraph ready")
	<-ctx.Done()
	logger.Info("shutting down", "timeout", cliCfg.ShutdownTimeout)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// startPersistence connects to NATS, provisions the KV bucket, and starts the
// snapshot mirror. The returned stop function drains both.
func startPersistence(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry *metric.Registry,
	st *store.Store,
) (func(), error) {
	client, err := natsclient.New(natsclient.DefaultOptions(cfg.Persist.URL), logger)
	if err != nil {
		return nil, fmt.Errorf("create nats client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	kv, err := client.EnsureKV(ctx, cfg.Persist.Bucket)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("provision kv bucket: %w", err)
	}

	persister, err := persist.New(persist.Dependencies{
		KVBucket: kv,
		Logger:   logger,
		Metrics:  registry,
		Config: persist.Config{
			QueueSize:    cfg.Persist.QueueSize,
			WriteTimeout: cfg.Persist.WriteTimeout,
		},
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create persister: %w", err)
	}
	if err := persister.Start(ctx, st); err != nil {
		client.Close()
		return nil, fmt.Errorf("start persister: %w", err)
	}

	return func() {
		persister.Stop()
		client.Close()
	}, nil
}

func startMetricsServer(ctx context.Context, logger *slog.Logger, registry *metric.Registry, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
