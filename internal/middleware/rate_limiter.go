package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ventanaFija counts hits per key in fixed windows.
type ventanaFija interface {
	hit(ctx context.Context, key string, window time.Duration) (count int64, reset time.Duration, err error)
}

// RateLimiter allows limit requests per window per client IP. With Redis the
// counters are shared by every API replica; without it each process counts
// on its own. A Redis failure lets the request through.
func RateLimiter(rdb *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	var v ventanaFija = newVentanaLocal()
	if rdb != nil {
		v = ventanaRedis{rdb: rdb}
	}
	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP()
		count, reset, err := v.hit(c.Request.Context(), key, window)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// ── Redis ─────────────────────────────────────────────────────────────────────

type ventanaRedis struct{ rdb *redis.Client }

func (v ventanaRedis) hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := v.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}
	return incr.Val(), ttl.Val(), nil
}

// ── In-process ────────────────────────────────────────────────────────────────

type entradaLocal struct {
	count int64
	fin   time.Time
}

type ventanaLocal struct {
	mu       sync.Mutex
	entradas map[string]*entradaLocal
	ultima   time.Time
}

func newVentanaLocal() *ventanaLocal {
	return &ventanaLocal{entradas: make(map[string]*entradaLocal)}
}

func (v *ventanaLocal) hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	// expired keys are dropped once per window so idle IPs do not accumulate
	if now.Sub(v.ultima) > window {
		for k, e := range v.entradas {
			if now.After(e.fin) {
				delete(v.entradas, k)
			}
		}
		v.ultima = now
	}

	e, ok := v.entradas[key]
	if !ok || now.After(e.fin) {
		e = &entradaLocal{fin: now.Add(window)}
		v.entradas[key] = e
	}
	e.count++
	return e.count, e.fin.Sub(now), nil
}
