package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const CorrelationHeader = "X-Correlation-ID"

// CorrelationMiddleware propagates the caller's correlation id, or mints one.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.Request.Header.Get(CorrelationHeader)
		if cid == "" || len(cid) > 64 {
			cid = uuid.NewString()
		}
		c.Writer.Header().Set(CorrelationHeader, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}

func rateLimitKey(c *gin.Context, now time.Time) string {
	who := c.ClientIP()
	if userId, ok := utils.GetUserIdFromContext(c.Request.Context()); ok && userId > 0 {
		who = fmt.Sprintf("user:%d", userId)
	}
	return fmt.Sprintf("RateLimit:%s:%d", who, now.Unix()/60)
}

// RateLimitMiddleware allows RATE_LIMIT_PER_MINUTE requests per caller per minute.
// Zero disables it; redis errors let the request through.
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := config.RateLimitPerMinute()
		if limit == 0 {
			c.Next()
			return
		}
		n, err := config.IncrRedisWindow(c.Request.Context(), rateLimitKey(c, time.Now()), time.Minute)
		if err == nil && n > int64(limit) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
