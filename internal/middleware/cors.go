package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows the configured comma-separated origins. An empty list or "*"
// allows any origin.
func CORS(allowedOrigins string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	var origenes []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			origenes = nil
			break
		}
		if o != "" {
			origenes = append(origenes, o)
		}
	}
	if len(origenes) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origenes
	}
	cfg.AddAllowMethods("PATCH", "DELETE")
	cfg.AddAllowHeaders("Authorization", RequestIDHeader)
	cfg.ExposeHeaders = []string{RequestIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
