package middlewares

import (
	"net/http"
	"strconv"
	"time"
)

// TokenBucketScript refills at ARGV[2] tokens per millisecond up to ARGV[1]
// and takes ARGV[4] tokens. Returns the tokens left, or -1 when empty.
const TokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refillRate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local bucket = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(bucket[1])
local last_refill = tonumber(bucket[2])
if tokens == nil then
  tokens = capacity
  last_refill = now
end

local delta = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + delta * refillRate)
if tokens < requested then
  return -1
end
tokens = tokens - requested
redis.call("HSET", key, "tokens", tokens, "last_refill", now)
redis.call("EXPIRE", key, 3600)
return math.floor(tokens)
`

// TokenBucketMiddleware limits each client and path to a bucket of capacity
// tokens refilled at refillRate tokens per millisecond. Requires
// RateLimitRedisStore.
func TokenBucketMiddleware(capacity int, refillRate float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if RateLimitRedisStore == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := "rate:token:" + getIPAddress(r) + ":" + r.URL.Path
			now := time.Now().UnixMilli()

			res, err := RateLimitRedisStore.Client.Eval(r.Context(), TokenBucketScript, []string{key},
				capacity, refillRate, now, 1).Int64()
			if err != nil {
				DebugLogger.Printf("token bucket %s: %v", key, err)
				next.ServeHTTP(w, r)
				return
			}
			if res < 0 {
				tooManyRequests(w)
				return
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(capacity))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res, 10))
			w.Header().Set("X-RateLimit-Reset", "1")
			next.ServeHTTP(w, r)
		})
	}
}
