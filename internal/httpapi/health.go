package httpapi

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/giro-sh/license-server/internal/metrics"
)

// HealthHandlers implements /health and /health/metrics (§6).
type HealthHandlers struct {
	db      *sqlx.DB
	redis   *redis.Client
	version string
}

func NewHealthHandlers(db *sqlx.DB, redisClient *redis.Client, version string) *HealthHandlers {
	return &HealthHandlers{db: db, redis: redisClient, version: version}
}

func (h *HealthHandlers) RegisterRoutes(router fiber.Router) {
	g := router.Group("/health")
	g.Get("/", h.status)
	g.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (h *HealthHandlers) status(c *fiber.Ctx) error {
	body := fiber.Map{"status": "healthy", "service": "giro-license-server", "version": h.version}

	dbHealthy := true
	if err := h.db.PingContext(c.Context()); err != nil {
		dbHealthy = false
		body["db"] = "unhealthy"
		body["status"] = "degraded"
	} else {
		body["db"] = "healthy"
	}

	redisHealthy := true
	if err := h.redis.Ping(context.Background()).Err(); err != nil {
		redisHealthy = false
		body["redis"] = "unhealthy"
		body["status"] = "degraded"
	} else {
		body["redis"] = "healthy"
	}

	setGauge(metrics.DatabaseConnected, dbHealthy)
	setGauge(metrics.RedisConnected, redisHealthy)
	metrics.Up.Set(1)

	status := fiber.StatusOK
	if body["status"] == "degraded" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(body)
}

func setGauge(g interface{ Set(float64) }, healthy bool) {
	if healthy {
		g.Set(1)
	} else {
		g.Set(0)
	}
}
