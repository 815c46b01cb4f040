package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	grpcmiddleware "user-record-service/internal/adapter/grpc/middleware"
	"user-record-service/pkg/logger"
)

// MsgRateLimited is the error body returned with 429
const MsgRateLimited = "Rate limit exceeded"

// RateLimiter returns a Gin middleware that counts requests per
// method, path and client IP in the shared Redis limiter. Redis errors let
// the request through.
func RateLimiter(limiter *grpcmiddleware.RateLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		key := c.Request.Method + ":" + path + ":" + c.ClientIP()

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			logger.WithContext(ctx, log).Warn("rate limiter redis error, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": MsgRateLimited})
			return
		}

		c.Next()
	}
}
