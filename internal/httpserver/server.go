package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/line-webhook-service/internal/auth"
	"github.com/PratikDhanave/line-webhook-service/internal/config"
	"github.com/PratikDhanave/line-webhook-service/internal/handlers"
	"github.com/PratikDhanave/line-webhook-service/internal/metrics"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router serves.
type Deps struct {
	Dispatcher handlers.Dispatcher
	Metrics    *metrics.Registry
	Logger     *zap.Logger

	// Journal backs /ready; nil means always ready.
	Journal Pinger
	// Deliveries backs /deliveries; nil disables the route.
	Deliveries handlers.DeliveryCounter
}

// NewRouter wires public endpoints and the webhook.
// Public: /health, /ready, /metrics, /static
// Signed: /callback
// Operator (X-API-Key): /deliveries
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(logger))
	r.Use(AccessLog(logger))

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the journal is reachable.
	r.GET("/ready", func(c *gin.Context) {
		if deps.Journal != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()

			if err := deps.Journal.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.Static("/static", cfg.StaticDir)

	handlers.RegisterCallbackRoutes(r, deps.Dispatcher, deps.Metrics, logger.Named("callback"))

	if deps.Deliveries != nil && cfg.AdminAPIKey != "" {
		admin := r.Group("/")
		admin.Use(auth.RequireAPIKey(cfg.AdminAPIKey))
		handlers.RegisterDeliveryRoutes(admin, deps.Deliveries)
	}

	return r
}
