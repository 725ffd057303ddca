package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/erp/bomengine/internal/infrastructure/logger"
	"github.com/erp/bomengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// rateLimitPrefix namespaces limiter counters in the store
const rateLimitPrefix = "bom:ratelimit"

// NewRateLimiter builds a fixed-window limiter allowing requests per window.
// Counters live in Redis when client is not nil so every replica shares them.
func NewRateLimiter(requests int, window time.Duration, client *redis.Client) (*limiter.Limiter, error) {
	if requests <= 0 || window <= 0 {
		return nil, fmt.Errorf("rate limit needs a positive request count and window, got %d per %s", requests, window)
	}
	rate := limiter.Rate{Period: window, Limit: int64(requests)}

	var store limiter.Store
	if client != nil {
		var err error
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, fmt.Errorf("create redis rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}
	return limiter.New(store, rate), nil
}

// RateLimit limits requests per tenant and client IP. It sets the
// X-RateLimit-* headers and answers 429 ERR_RATE_LIMITED once the window
// is used up. Store failures let the request through.
func RateLimit(l *limiter.Limiter) gin.HandlerFunc {
	return mgin.NewMiddleware(l,
		mgin.WithKeyGetter(rateLimitKey),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				c.GetString(RequestIDKey),
			))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			logger.L(c.Request.Context()).Warn("Rate limit store unavailable", zap.Error(err))
			c.Next()
		}),
	)
}

func rateLimitKey(c *gin.Context) string {
	if tenantID, ok := GetTenantID(c); ok {
		return tenantID.String() + ":" + c.ClientIP()
	}
	return c.ClientIP()
}
