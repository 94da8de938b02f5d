package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/terra-clan/practice-engine/internal/api"
	"github.com/terra-clan/practice-engine/internal/catalog"
	"github.com/terra-clan/practice-engine/internal/config"
	"github.com/terra-clan/practice-engine/internal/generator"
	"github.com/terra-clan/practice-engine/internal/practice"
	"github.com/terra-clan/practice-engine/internal/records"
	"github.com/terra-clan/practice-engine/internal/storage"
)

func main() {
	// Bootstrap logging until the configured level and sink are known
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCloser := setupLogging(cfg.Log)
	defer logCloser.Close()

	slog.Info("starting practice-engine",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
		"generator", cfg.Generator.Mode,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize record repository
	repo, err := storage.Open(initCtx, storage.Options{
		Driver:   cfg.Store.Driver,
		FilePath: cfg.Store.FilePath,
		Postgres: storage.PostgresConfig{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: int32(cfg.Database.MaxOpenConns),
			MaxIdleConns: int32(cfg.Database.MaxIdleConns),
			MaxLifetime:  cfg.Database.MaxLifetime,
			MaxAttempts:  cfg.Database.MaxAttempts,
		},
		MigrationsDir: cfg.Store.MigrationsDir,
		Redis: storage.RedisConfig{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	})
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	// Load catalog; a failure leaves it empty
	catalogLoader := catalog.NewLoader()
	catalogLoader.Load(cfg.Catalog.Path)

	// Initialize generator client
	gen := generator.NewClient(newTransport(cfg.Generator), cfg.Generator.Timeout, generator.RetryConfig{
		MaxRetries:        cfg.Generator.MaxRetries,
		InitialDelay:      cfg.Generator.RetryDelay,
		MaxDelay:          cfg.Generator.RetryMaxDelay,
		BackoffMultiplier: 2,
	})

	service := practice.NewService(catalogLoader, records.NewStore(repo), gen, practice.Options{
		PrefetchConcurrency: cfg.Prefetch.Concurrency,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start catalog reload worker
	if cfg.Catalog.ReloadInterval > 0 {
		catalog.NewReloader(catalogLoader, cfg.Catalog.ReloadInterval).Start(ctx)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, cfg.Auth, service, repo)
	httpServer := &http.Server{
		Addr:        cfg.Server.Address(),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Stop prefetch runs before the store closes
	service.Close()

	slog.Info("practice-engine stopped")
}

func newTransport(cfg config.GeneratorConfig) generator.Transport {
	if cfg.Mode == config.GeneratorHTTP {
		return generator.NewHTTPTransport(generator.HTTPConfig{
			Endpoint:     cfg.Endpoint,
			Model:        cfg.Model,
			APIKey:       cfg.APIKey,
			SystemPrompt: cfg.SystemPrompt,
		}, nil)
	}
	return generator.NewProcessTransport(generator.ProcessConfig{
		Command: cfg.Command,
		Script:  cfg.Script,
		KeyFile: cfg.KeyFile,
		Dir:     cfg.Dir,
	})
}

// setupLogging installs the JSON handler at the configured level, writing
// to stdout and, when configured, a rotating file
func setupLogging(cfg config.LogConfig) io.Closer {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})))
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
