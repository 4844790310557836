package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the mail breaker; never exposes
// credentials or internals. An open breaker degrades receipts only, so it does
// not fail the check.
func Health(db *gorm.DB, rdb *redis.Client, mailer *infra.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		if rdb == nil || rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		}

		// parked jobs degrade receipts only; reported, never fatal
		dlq := gin.H{}
		if redisStatus == "connected" {
			for _, q := range worker.Colas {
				if n, err := worker.DLQLength(ctx, rdb, q); err == nil {
					dlq[q] = n
				}
			}
		}

		smtpStatus := "disabled"
		if mailer != nil {
			smtpStatus = mailer.Estado().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
			"smtp":  smtpStatus,
			"dlq":   dlq,
		})
	}
}
