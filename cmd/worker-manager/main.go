// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"scout-workers/internal/app"
	"scout-workers/internal/common/camunda"
	"scout-workers/internal/common/config"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/observability"

	enrichcompany "scout-workers/internal/workers/enrichment/enrich-company"
	fetchlivefeed "scout-workers/internal/workers/intelligence/fetch-live-feed"
	scoutchat "scout-workers/internal/workers/intelligence/scout-chat"
	calculatefitscore "scout-workers/internal/workers/scoring/calculate-fit-score"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "worker-manager"})

	log.Info("Starting worker manager...", map[string]interface{}{"version": cfg.App.Version})

	obs, err := observability.New("worker-manager")
	if err != nil {
		log.Warn("otel metrics unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown()

	if cfg.Tracing.Enabled {
		shutdownTracing, err := observability.InitTracing("worker-manager", cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			log.Warn("tracing disabled", map[string]interface{}{"error": err.Error()})
		}
		defer shutdownTracing()
	}

	ctx := context.Background()

	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	log.Info("Zeebe client connected successfully", nil)

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("backend initialization failed", zap.Error(err))
	}
	defer a.Close()

	handlers := map[string]camunda.JobHandler{
		enrichcompany.TaskType:     a.Enrich,
		scoutchat.TaskType:         a.Chat,
		fetchlivefeed.TaskType:     a.LiveFeed,
		calculatefitscore.TaskType: a.Score,
	}

	var workers []worker.JobWorker
	for taskType, handler := range handlers {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), taskType, wcfg, handler, obs, log))
	}
	log.Info("All workers registered", map[string]interface{}{"count": len(workers)})

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := a.Ping(r.Context())
		checks["zeebe"] = zeebe.HealthCheck(r.Context())

		status, state := http.StatusOK, "ready"
		details := make(map[string]string, len(checks))
		for name, err := range checks {
			details[name] = "ok"
			if err != nil {
				details[name] = err.Error()
				status, state = http.StatusServiceUnavailable, "not_ready"
			}
		}
		writeStatus(w, status, state, details)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Server.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": cfg.Server.MetricsAddress})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping workers...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Close()
		w.AwaitClose()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err.Error()})
	}
	if err := zeebe.Close(); err != nil {
		log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
