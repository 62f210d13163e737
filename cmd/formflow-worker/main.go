// Formflow Worker — потребитель событий аналитики.
//
// Worker:
//   - Получает события flow.published и response.submitted из RabbitMQ
//   - Ведёт счётчики ответов по flows
//   - Отдаёт /healthz и /metrics
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Formflow/internal/analytics"
	"github.com/shaiso/Formflow/internal/config"
	"github.com/shaiso/Formflow/internal/filestore"
	"github.com/shaiso/Formflow/internal/mq"
	"github.com/shaiso/Formflow/internal/repo"
	"github.com/shaiso/Formflow/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLoggerWith(os.Stdout, telemetry.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	logger.Info("starting formflow-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	workerCfg := analytics.WorkerConfig{Logger: logger}

	// Хранилище ответов нужно только для проверки событий; без него worker
	// доверяет событиям как есть.
	switch cfg.Storage {
	case config.StorageFile:
		store, err := filestore.Open(cfg.DataDir)
		if err != nil {
			logger.Warn("file storage not available", "error", err)
		} else {
			workerCfg.Responses = store.Responses()
		}
	default:
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("database not available, events are not verified", "error", err)
		} else {
			defer pool.Close()
			workerCfg.Responses = repo.NewResponseRepo(pool)
			logger.Info("database connected")
		}
	}

	// RabbitMQ
	mqURL := cfg.RabbitMQURL
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}
	mqConn, err := mq.NewConnection(mqURL, "formflow-worker", logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	workerCfg.Conn = mqConn

	w := analytics.NewWorker(workerCfg)
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics + /tallies
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			http.Error(w, "rabbitmq disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/tallies", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(w.Snapshot())
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.WorkerAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	w.Stop()
	logger.Info("formflow-worker stopped")
}
