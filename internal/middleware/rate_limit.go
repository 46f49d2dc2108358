package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkhub/internal/service"
	"linkhub/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit throttles by authenticated sender when available, falling back to
// client IP for anything mounted outside the auth middleware.
func (m *RateLimitMiddleware) Limit(limit, windowSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.ClientIP()
		if id, ok := c.Get(ContextUserID); ok {
			if userID, ok := id.(uuid.UUID); ok {
				subject = userID.String()
			}
		}
		key := "ratelimit:" + subject + ":" + c.FullPath()

		allowed, count, err := m.rateLimitService.Allow(c.Request.Context(), key, limit, windowSeconds)
		if err != nil {
			m.log.Error("Rate limit check failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}
