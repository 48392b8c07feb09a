package middleware

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ocheikhi/vehinspect-backend/utils"
)

// RateLimiter limits requests per IP. Backed by the shared Redis client so
// the limit holds across instances; falls back to an in-memory store when
// Redis is unavailable.
func RateLimiter() gin.HandlerFunc {
	rate := limiter.Rate{
		Period: 1 * time.Minute,
		Limit:  100,
	}

	var store limiter.Store
	if utils.RedisClient != nil {
		var err error
		store, err = redisstore.NewStoreWithOptions(utils.RedisClient, limiter.StoreOptions{
			Prefix: "vehinspect:ratelimit",
		})
		if err != nil {
			log.Printf("⚠️ Redis rate-limit store unavailable, using memory store: %v", err)
			store = memory.NewStore()
		}
	} else {
		store = memory.NewStore()
	}

	instance := limiter.New(store, rate)
	return ginlimiter.NewMiddleware(instance)
}
