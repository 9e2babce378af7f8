package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SlidingWindowMiddleware allows maxRequests per client and path within any
// trailing windowDuration. Requires RateLimitRedisStore.
func SlidingWindowMiddleware(maxRequests int, windowDuration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RateLimitRedisStore == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := "rate:sliding:" + getIPAddress(r) + ":" + r.URL.Path
			ctx := r.Context()
			client := RateLimitRedisStore.Client

			now := time.Now().UnixMilli()
			windowStart := now - windowDuration.Milliseconds()

			// Members must be unique or concurrent requests in the same
			// millisecond collapse into one entry.
			pipe := client.TxPipeline()
			pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
			pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: uuid.NewString()})
			card := pipe.ZCard(ctx, key)
			pipe.Expire(ctx, key, windowDuration*2)
			if _, err := pipe.Exec(ctx); err != nil {
				DebugLogger.Printf("sliding window %s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}
			count := card.Val()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(maxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(maxRequests-int(count), 0)))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(windowDuration.Seconds())))

			if count > int64(maxRequests) {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
