package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/chatrelay/internal/db"
	"github.com/redis/go-redis/v9"
)

// Health handles GET /v1/health. Public, load balancers hit it. Reports
// per-dependency status instead of a bare 200 so a half-degraded instance
// is visible.
func Health(database *db.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "connected"
		if err := database.Health(c.Request.Context()); err != nil {
			dbStatus = "disconnected"
		}

		redisStatus := "connected"
		if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "disconnected"
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"status":   "ok",
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}
