// internal/api/router.go
package api

import (
	"context"
	"net/http"
	"time"

	"scout-workers/internal/common/auth"
	"scout-workers/internal/common/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	Production     bool
	TracingEnabled bool
	RequestTimeout time.Duration
}

// NewRouter wires the public endpoints and the authenticated /api group.
func NewRouter(cfg RouterConfig, h Handlers, validator auth.TokenValidator, checks map[string]ReadinessCheck, log logger.Logger) *gin.Engine {
	log = log.WithFields(map[string]interface{}{"component": "api"})

	router := gin.New()
	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(Recovery(log))
	router.Use(RequestLogger(log))
	router.Use(CORS(cfg.AllowedOrigins, cfg.Production))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", readiness(checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	group := router.Group("/api")
	group.Use(Timeout(cfg.RequestTimeout))
	group.Use(RequireAuth(validator))
	{
		group.POST("/enrich", h.enrich)
		group.POST("/chat", h.chat)
		group.GET("/live-feed", h.liveFeed)
		group.POST("/score", h.score)
	}

	return router
}

func readiness(checks map[string]ReadinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "checks": results})
	}
}
