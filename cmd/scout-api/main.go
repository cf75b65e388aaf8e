// cmd/scout-api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"scout-workers/internal/api"
	"scout-workers/internal/app"
	"scout-workers/internal/common/config"
	"scout-workers/internal/common/logger"
	"scout-workers/internal/common/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{"service": "scout-api"})

	obs, err := observability.New("scout-api")
	if err != nil {
		log.Warn("otel metrics unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown()

	if cfg.Tracing.Enabled {
		shutdownTracing, err := observability.InitTracing("scout-api", cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			log.Warn("tracing disabled", map[string]interface{}{"error": err.Error()})
		}
		defer shutdownTracing()
	}

	a, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		zapLog.Fatal("backend initialization failed", zap.Error(err))
	}
	defer a.Close()

	if a.Validator == nil {
		log.Warn("auth.keycloak.url is not set, /api requests will be rejected", nil)
	}

	production := cfg.App.Environment == "production"
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]api.ReadinessCheck{
		"postgres": a.Postgres.Ping,
		"redis":    a.Redis.Ping,
	}
	if a.Search != nil {
		checks["elasticsearch"] = a.Search.Ping
	}

	router := api.NewRouter(
		api.RouterConfig{
			ServiceName:    "scout-api",
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Production:     production,
			TracingEnabled: cfg.Tracing.Enabled,
			RequestTimeout: config.GetDuration(cfg.Server.RequestTimeout),
		},
		api.Handlers{Enrich: a.Enrich, Chat: a.Chat, LiveFeed: a.LiveFeed, Score: a.Score},
		a.Validator,
		checks,
		log,
	)

	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("http server starting", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", map[string]interface{}{"error": err.Error()})
	}
	log.Info("shutdown complete", nil)
}
