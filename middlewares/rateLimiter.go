package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"portfolio-views/cache"

	gocache "github.com/patrickmn/go-cache"
)

// RateLimitRedisStore backs the Redis algorithms. When it is nil the fixed
// window counts in process memory instead.
var RateLimitRedisStore *cache.RedisStore

var memoryWindows = gocache.New(time.Minute, 5*time.Minute)

// RateLimitMiddleware picks the limiter named by algorithm. Unknown names
// fall back to the fixed window.
func RateLimitMiddleware(algorithm string, maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	switch algorithm {
	case "off":
		return func(next http.Handler) http.Handler { return next }
	case "sliding":
		return SlidingWindowMiddleware(maxRequests, window)
	case "token":
		// refill the whole bucket once per window
		refill := float64(maxRequests) / float64(window.Milliseconds())
		return TokenBucketMiddleware(maxRequests, refill)
	case "leaky":
		leak := float64(maxRequests) / float64(window.Milliseconds())
		return LeakyBucketMiddleware(maxRequests, leak)
	default:
		return APIRateLimitMiddleware(int64(maxRequests), window)
	}
}

// APIRateLimitMiddleware allows maxRequest requests per client and path in
// every fixed window.
func APIRateLimitMiddleware(maxRequest int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "rate:" + getIPAddress(r) + ":" + r.URL.Path

			var (
				count int64
				reset time.Duration
				err   error
			)
			if RateLimitRedisStore != nil {
				count, reset, err = redisWindowCount(r, key, window)
			} else {
				count, reset = memoryWindowCount(key, window)
			}
			if err != nil {
				// In case of error, let the request pass.
				DebugLogger.Printf("rate limit %s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(maxRequest, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(maxRequest-count, 0), 10))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(reset.Seconds())))

			if count > maxRequest {
				tooManyRequests(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redisWindowCount(r *http.Request, key string, window time.Duration) (int64, time.Duration, error) {
	ctx := r.Context()
	client := RateLimitRedisStore.Client

	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	// First request of the window starts the clock.
	if count == 1 {
		client.Expire(ctx, key, window)
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = window
	}
	return count, ttl, nil
}

func memoryWindowCount(key string, window time.Duration) (int64, time.Duration) {
	count, err := memoryWindows.IncrementInt64(key, 1)
	if err != nil {
		if memoryWindows.Add(key, int64(1), window) == nil {
			return 1, window
		}
		// lost the race to another request
		count, _ = memoryWindows.IncrementInt64(key, 1)
	}

	reset := window
	if _, expires, ok := memoryWindows.GetWithExpiration(key); ok && !expires.IsZero() {
		reset = time.Until(expires)
	}
	return count, reset
}

func tooManyRequests(w http.ResponseWriter) {
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte("Rate limit exceeded. Try again later."))
}
