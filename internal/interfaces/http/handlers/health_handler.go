package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/underwritex/riskd/pkg/logger"
)

// Pinger checks one dependency's liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health, readiness, and liveness probes. The
// warehouse platform probes POST /health with the envelope contract; the
// orchestrator probes the GET endpoints.
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	version string
	log     logger.Logger
}

// NewHealthHandler creates a HealthHandler. Either pinger may be nil when
// the dependency is not deployed; readiness then skips it.
func NewHealthHandler(db, redis Pinger, version string, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		version: version,
		log:     log.WithComponent("health_handler"),
	}
}

// HealthCheck handles GET /health: a shallow probe confirming the process
// serves traffic. Scoring works even with every dependency down, so this
// never consults them.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckEnvelope handles POST /health for the warehouse platform, which
// expects the service-function envelope even on probes.
func (h *HealthHandler) HealthCheckEnvelope(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": [][]interface{}{
			{0, gin.H{
				"status":  "healthy",
				"version": h.version,
			}},
		},
	})
}

// LivenessCheck handles GET /live.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ReadinessCheck handles GET /ready: dependencies are probed concurrently
// with a shared deadline. Degraded dependencies are reported but the probe
// still returns 200, because the fallback scorer keeps the response path
// functional without them.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	var dbStatus, redisStatus string

	g, gctx := errgroup.WithContext(ctx)
	if h.db != nil {
		g.Go(func() error {
			dbStatus = "ok"
			if err := h.db.Ping(gctx); err != nil {
				dbStatus = "unavailable"
				h.log.Warn(gctx, "Readiness: database unreachable", logger.String("error", err.Error()))
			}
			return nil
		})
	}
	if h.redis != nil {
		g.Go(func() error {
			redisStatus = "ok"
			if err := h.redis.Ping(gctx); err != nil {
				redisStatus = "unavailable"
				h.log.Warn(gctx, "Readiness: redis unreachable", logger.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	if dbStatus != "" {
		checks["database"] = dbStatus
	}
	if redisStatus != "" {
		checks["redis"] = redisStatus
	}

	status := "ready"
	for _, v := range checks {
		if v != "ok" {
			status = "degraded"
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"checks": checks,
	})
}
