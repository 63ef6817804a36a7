// Package http wires the gin router: middleware chain, endpoint registration,
// and graceful server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/riskpulse/internal/config"
	"github.com/turtacn/riskpulse/internal/interfaces/http/handlers"
	"github.com/turtacn/riskpulse/internal/interfaces/http/middleware"
	"github.com/turtacn/riskpulse/pkg/logger"
)

// Router owns the gin engine and the HTTP server lifecycle.
type Router struct {
	engine *gin.Engine
	server *http.Server
	cfg    config.ServerConfig
	log    logger.Logger
}

// Handlers bundles the endpoint handlers the router mounts.
type Handlers struct {
	Assessment *handlers.AssessmentHandler
	Model      *handlers.ModelHandler
	Provider   *handlers.ProviderHandler
	Health     *handlers.HealthHandler
}

// NewRouter builds the engine with the full middleware chain and routes.
func NewRouter(cfg *config.Config, h Handlers, log logger.Logger) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogging(log))
	engine.Use(cors.Default())

	// Probes and operational surfaces sit outside auth.
	engine.GET("/health/live", h.Health.Live)
	engine.GET("/health/ready", h.Health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.Monitoring.PprofEnabled {
		pprof.Register(engine)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)

	v1 := engine.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.Auth))
	v1.Use(rateLimiter.Middleware())
	{
		v1.POST("/assessments", h.Assessment.Create)
		v1.GET("/assessments", h.Assessment.List)
		v1.GET("/assessments/:id", h.Assessment.Get)

		v1.GET("/models", h.Model.List)
		v1.GET("/models/:id", h.Model.Get)

		v1.GET("/providers/health", h.Provider.Health)
		v1.POST("/providers/:id/breaker/reset", h.Provider.ResetBreaker)
	}

	return &Router{
		engine: engine,
		cfg:    cfg.Server,
		log:    log.WithComponent("http.server"),
	}
}

// Engine exposes the underlying gin engine for tests.
func (r *Router) Engine() *gin.Engine { return r.engine }

// Start runs the HTTP server until the context is cancelled, then shuts down
// gracefully.
func (r *Router) Start(ctx context.Context) error {
	r.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", r.cfg.Host, r.cfg.Port),
		Handler:      r.engine,
		ReadTimeout:  r.cfg.ReadTimeout,
		WriteTimeout: r.cfg.WriteTimeout,
		IdleTimeout:  r.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		r.log.Info(ctx, "http server listening", logger.String("addr", r.server.Addr))
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	r.log.Info(shutdownCtx, "shutting down http server")
	return r.server.Shutdown(shutdownCtx)
}
