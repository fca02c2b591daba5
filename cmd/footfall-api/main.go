package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/footfall/footfall/internal/api"
	"github.com/footfall/footfall/internal/api/webstatic"
	"github.com/footfall/footfall/internal/completion"
	"github.com/footfall/footfall/internal/config"
	"github.com/footfall/footfall/internal/ingest"
	"github.com/footfall/footfall/internal/observability"
	"github.com/footfall/footfall/internal/plot"
	s3store "github.com/footfall/footfall/internal/storage/s3"
	"github.com/footfall/footfall/internal/store/sqlite"
)

func main() {
	cfg, err := config.LoadFromEnv("footfall-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := sqlite.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if cfg.Ingest.Enabled {
		if err := runIngest(cfg, db, logger); err != nil {
			logger.Error("startup ingest failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	streamer, err := completion.NewOpenAIStreamer(completion.OpenAIConfig{
		BaseURL: cfg.AI.Endpoint,
		APIKey:  cfg.AI.APIKey,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize completion provider", slog.Any("error", err))
		os.Exit(1)
	}
	completer, err := completion.NewClient(streamer, completion.Router{
		PrimaryModel: cfg.AI.PrimaryModel,
		Primary:      cfg.AI.PrimaryDeployment,
		Fallback:     cfg.AI.FallbackDeployment,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize completion client", slog.Any("error", err))
		os.Exit(1)
	}

	agent, err := plot.NewAgent(completer, db, plot.Config{
		Model:        cfg.AI.Model,
		Temperature:  cfg.AI.Temperature,
		AITimeout:    cfg.AI.Timeout,
		QueryTimeout: cfg.Store.QueryTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize plot agent", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:    logger,
		Plot:      agent,
		Directory: db,
		UI:        webstatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			db.Ping,
			api.CheckAIConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func runIngest(cfg config.Config, db *sqlite.Store, logger *slog.Logger) error {
	loader, err := ingest.NewLoader(db, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch cfg.Ingest.Source {
	case "s3":
		objects, err := s3store.New(s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			return err
		}
		_, err = loader.LoadObject(ctx, objects, cfg.Ingest.ObjectKey)
		return err
	default:
		_, err = loader.LoadFile(ctx, cfg.Ingest.Path)
		return err
	}
}
