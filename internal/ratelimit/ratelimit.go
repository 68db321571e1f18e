// package ratelimit throttles inbound requests per client ip.
package ratelimit

import (
	"fmt"
	"strconv"
	"time"

	apierrors "codeberg.org/federate/server/internal/errors"
	"codeberg.org/federate/server/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const keyPrefix = "federate:limiter"

// builds the limiter store: redis when a client is given, process memory otherwise
func newStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          keyPrefix,
			CleanUpInterval: time.Minute,
		}), nil
	}

	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   keyPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
	}

	return store, nil
}

// returns a gin middleware allowing rate requests per client ip.
// rate uses the limiter format, e.g. "60-M" for 60 per minute.
func Middleware(rate string, client *redis.Client) (gin.HandlerFunc, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", rate, err)
	}

	store, err := newStore(client)
	if err != nil {
		return nil, err
	}

	instance := limiter.New(store, parsed)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			logger.FromContext(c.Request.Context()).Warn("rate limit exceeded", "ip", c.ClientIP(), "path", c.FullPath())

			c.Header("Retry-After", strconv.Itoa(int(parsed.Period.Seconds())))
			apierrors.TooManyRequests(c, "too many requests. please slow down.")
			c.Abort()
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			// a broken limiter store must not lock everyone out of login
			logger.FromContext(c.Request.Context()).Error("rate limiter failed", "error", err)
			c.Next()
		}),
	), nil
}
