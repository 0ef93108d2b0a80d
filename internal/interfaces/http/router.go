// Package http wires the gin engine: middleware chain, routes, and server
// lifecycle.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/underwritex/riskd/internal/config"
	"github.com/underwritex/riskd/internal/interfaces/http/handlers"
	"github.com/underwritex/riskd/internal/interfaces/http/middleware"
	"github.com/underwritex/riskd/pkg/constants"
	"github.com/underwritex/riskd/pkg/logger"
)

// Router owns the gin engine and the HTTP server lifecycle.
type Router struct {
	engine         *gin.Engine
	config         *config.Config
	logger         logger.Logger
	predictHandler *handlers.PredictHandler
	healthHandler  *handlers.HealthHandler
	server         *http.Server
}

// NewRouter creates the Router.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	predictHandler *handlers.PredictHandler,
	healthHandler *handlers.HealthHandler,
) *Router {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Router{
		engine:         gin.New(),
		config:         cfg,
		logger:         log.WithComponent("router"),
		predictHandler: predictHandler,
		healthHandler:  healthHandler,
	}
}

// SetupRoutes installs the middleware chain and all routes.
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.AccessLog(r.logger))
	if r.config.Tracing.Enabled {
		r.engine.Use(middleware.Tracing(r.config.Tracing.ServiceName))
	}

	corsConfig := cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", constants.HeaderRequestID},
		ExposeHeaders:   []string{constants.HeaderRequestID},
		MaxAge:          12 * time.Hour,
	}
	r.engine.Use(cors.New(corsConfig))

	// Probes.
	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.POST("/health", r.healthHandler.HealthCheckEnvelope)
	r.engine.GET("/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)

	// Warehouse service-function endpoint (batch envelope).
	r.engine.POST("/predict", r.predictHandler.PredictEnvelope)

	// Prometheus metrics.
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Pprof outside production only.
	if r.config.Server.Environment != "production" {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		v1.POST("/predict", r.predictHandler.Predict)
		v1.GET("/predictions/:policy_number", r.predictHandler.GetPrediction)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "the requested resource was not found",
		})
	})
}

// Engine exposes the configured engine for in-process tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start builds the server and serves until Stop or a listener error.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := r.config.Server.Addr()
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(r.config.Server.IdleTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "Starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully, letting in-flight requests finish.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "Stopping HTTP server")
	return r.server.Shutdown(ctx)
}
