package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	amqpConn    *amqp.Connection
}

// NewHealthHandler accepts nil dependencies; those are left out of the
// readiness report.
func NewHealthHandler(dbPool *pgxpool.Pool, redisClient *redis.Client, amqpConn *amqp.Connection) *HealthHandler {
	return &HealthHandler{dbPool: dbPool, redisClient: redisClient, amqpConn: amqpConn}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	ctx := c.Request.Context()

	checks := []struct {
		name string
		ok   func(context.Context) bool
	}{
		{"postgres", func(ctx context.Context) bool { return h.dbPool == nil || h.dbPool.Ping(ctx) == nil }},
		{"redis", func(ctx context.Context) bool { return h.redisClient == nil || h.redisClient.Ping(ctx).Err() == nil }},
		{"rabbitmq", func(context.Context) bool { return h.amqpConn == nil || !h.amqpConn.IsClosed() }},
	}

	resp := gin.H{"status": "ok"}
	for _, check := range checks {
		if !check.ok(ctx) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", check.name: "unavailable"})
			return
		}
		resp[check.name] = "connected"
	}
	c.JSON(http.StatusOK, resp)
}
