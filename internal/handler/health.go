package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports database, Redis and circuit breaker state. It answers 503
// only when both stores are unreachable; one of them down is "degraded".
func Health(db *gorm.DB, rdb *redis.Client, dbCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		if db == nil {
			dbStatus = "error"
		} else if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		breaker := "n/a"
		if dbCB != nil {
			breaker = dbCB.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" && redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ok":              status == http.StatusOK,
			"degraded":        dbStatus != "connected" || redisStatus != "connected",
			"db":              dbStatus,
			"redis":           redisStatus,
			"circuit_breaker": breaker,
		})
	}
}
