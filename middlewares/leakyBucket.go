package middlewares

import (
	"net/http"
	"strconv"
	"time"
)

// LeakyBucketScript drains ARGV[2] units per millisecond and adds ARGV[4]
// units when they fit under ARGV[1]. Returns the new level, or -1 when the
// bucket would overflow.
const LeakyBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local leakRate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requestCost = tonumber(ARGV[4])

local bucket = redis.call("HMGET", key, "level", "last_update")
local level = tonumber(bucket[1])
local lastUpdate = tonumber(bucket[2])
if level == nil then
  level = 0
  lastUpdate = now
end

local delta = math.max(0, now - lastUpdate)
level = math.max(0, level - delta * leakRate)

if level + requestCost > capacity then
  return -1
end
level = level + requestCost
redis.call("HSET", key, "level", level, "last_update", now)
redis.call("EXPIRE", key, 3600)
return math.ceil(level)
`

// LeakyBucketMiddleware lets each client and path hold at most capacity
// requests in a bucket leaking leakRate requests per millisecond. Requires
// RateLimitRedisStore.
func LeakyBucketMiddleware(capacity int, leakRate float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RateLimitRedisStore == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := "rate:leaky:" + getIPAddress(r) + ":" + r.URL.Path
			now := time.Now().UnixMilli()

			level, err := RateLimitRedisStore.Client.Eval(r.Context(), LeakyBucketScript, []string{key},
				capacity, leakRate, now, 1).Int64()
			if err != nil {
				DebugLogger.Printf("leaky bucket %s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}
			if level < 0 {
				tooManyRequests(w)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max(int64(capacity)-level, 0), 10))
			w.Header().Set("X-RateLimit-Reset", "1")
			next.ServeHTTP(w, r)
		})
	}
}
