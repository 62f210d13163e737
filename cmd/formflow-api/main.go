// Formflow API — HTTP сервис управления формами и приёма ответов.
//
// API:
//   - CRUD flows, черновики, проверка и публикация версий
//   - Рендеринг и навигация по опубликованной форме
//   - Приём ответов и агрегированная аналитика
//
// События публикации и новых ответов уходят в RabbitMQ, если он доступен.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Formflow/internal/api"
	"github.com/shaiso/Formflow/internal/cache"
	"github.com/shaiso/Formflow/internal/config"
	"github.com/shaiso/Formflow/internal/filestore"
	"github.com/shaiso/Formflow/internal/mq"
	"github.com/shaiso/Formflow/internal/repo"
	"github.com/shaiso/Formflow/internal/telemetry"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLoggerWith(os.Stdout, telemetry.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger.Info("starting formflow-api", "storage", cfg.Storage)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flows, responses, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Кеш опубликованных версий
	if cfg.Redis.Addr != "" {
		fc := cache.New(flows, cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB),
			cache.WithTTL(cfg.Redis.TTL),
			cache.WithLogger(logger),
		)
		if err := fc.Ping(ctx); err != nil {
			logger.Warn("redis not available, cache disabled", "error", err)
			fc.Close()
		} else {
			defer fc.Close()
			flows = fc
			logger.Info("redis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
	}

	handlerCfg := api.Config{
		FlowStore:     flows,
		ResponseStore: responses,
		Logger:        logger,
	}

	// RabbitMQ
	mqURL := cfg.RabbitMQURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, "formflow-api", logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, events disabled", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		handlerCfg.Publisher = mq.NewPublisher(mqConn, logger)
		logger.Info("RabbitMQ connected")
	}

	handler := api.NewHandler(handlerCfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              cfg.APIAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// openStorage открывает выбранный бэкенд хранения.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (repo.FlowStore, repo.ResponseStore, func(), error) {
	switch cfg.Storage {
	case config.StorageFile:
		store, err := filestore.Open(cfg.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.Watch {
			go func() {
				if err := store.Watch(ctx, logger); err != nil {
					logger.Warn("storage watch stopped", "error", err)
				}
			}()
		}
		logger.Info("file storage opened", "dir", store.Dir())
		return store.Flows(), store.Responses(), func() {}, nil

	default:
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := repo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("connected to database")
		return repo.NewFlowRepo(pool), repo.NewResponseRepo(pool), pool.Close, nil
	}
}
