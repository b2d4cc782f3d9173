package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/event-management/pkg/logger"
	pkgredis "github.com/prohmpiriya/event-management/pkg/redis"
	"github.com/prohmpiriya/event-management/pkg/response"
	"go.uber.org/zap"
)

const rateLimitScriptName = "token_bucket"

// tokenBucketScript refills and takes one token atomically; returns {allowed, tokens}
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

tokens = math.min(burst, tokens + (now - last_update) * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, ttl)
return {allowed, math.floor(tokens)}
`

// KeyFunc derives the throttle key for a request
type KeyFunc func(c *gin.Context) string

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Requests allowed per Window per key (0 = unlimited)
	Requests int
	// Window over which Requests are allowed
	Window time.Duration
	// Burst size (token bucket capacity); defaults to Requests
	BurstSize int
	// Scope namespaces buckets so several limiters can share a store
	Scope string
	// KeyFunc defaults to the client IP
	KeyFunc KeyFunc
	// RedisClient enables the distributed limiter when set
	RedisClient *pkgredis.Client
	// KeyPrefix for Redis keys
	KeyPrefix string
	// CleanupInterval for the local limiter
	CleanupInterval time.Duration
	// EntryTTL for idle local buckets
	EntryTTL time.Duration
	// Logger for Redis failures
	Logger *logger.Logger
}

// DefaultRateLimitConfig returns 60 requests per minute per client
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests:        60,
		Window:          time.Minute,
		BurstSize:       60,
		Scope:           "default",
		KeyPrefix:       "ratelimit:",
		CleanupInterval: time.Minute,
		EntryTTL:        2 * time.Minute,
	}
}

func (c RateLimitConfig) ratePerSecond() float64 {
	if c.Window <= 0 {
		return float64(c.Requests)
	}
	return float64(c.Requests) / c.Window.Seconds()
}

func (c RateLimitConfig) burst() int {
	if c.BurstSize > 0 {
		return c.BurstSize
	}
	return c.Requests
}

// rateLimitEntry tracks the bucket for a key
type rateLimitEntry struct {
	tokens     float64
	lastUpdate time.Time
	mu         sync.Mutex
}

// LocalRateLimiter implements in-memory token bucket rate limiting
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time

	totalAllowed  uint64
	totalRejected uint64
}

// NewLocalRateLimiter creates a new local rate limiter
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = time.Minute
	}
	if config.EntryTTL <= 0 {
		config.EntryTTL = 2 * time.Minute
	}

	rl := &LocalRateLimiter{
		config: config,
		stop:   make(chan struct{}),
		now:    time.Now,
	}

	go rl.cleanup()

	return rl
}

// Allow takes a token for key and returns whether the request may proceed and the tokens left
func (rl *LocalRateLimiter) Allow(key string) (bool, int) {
	now := rl.now()
	burst := float64(rl.config.burst())

	entry, _ := rl.entries.LoadOrStore(key, &rateLimitEntry{
		tokens:     burst,
		lastUpdate: now,
	})
	e := entry.(*rateLimitEntry)

	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := now.Sub(e.lastUpdate).Seconds()
	e.tokens = math.Min(burst, e.tokens+elapsed*rl.config.ratePerSecond())
	e.lastUpdate = now

	if e.tokens >= 1 {
		e.tokens--
		atomic.AddUint64(&rl.totalAllowed, 1)
		return true, int(e.tokens)
	}

	atomic.AddUint64(&rl.totalRejected, 1)
	return false, 0
}

// GetStats returns rate limiter statistics
func (rl *LocalRateLimiter) GetStats() (allowed, rejected uint64) {
	return atomic.LoadUint64(&rl.totalAllowed), atomic.LoadUint64(&rl.totalRejected)
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value interface{}) bool {
				e := value.(*rateLimitEntry)
				e.mu.Lock()
				if e.lastUpdate.Before(cutoff) {
					rl.entries.Delete(key)
				}
				e.mu.Unlock()
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the cleanup goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// RedisRateLimiter implements the same token bucket shared across instances
type RedisRateLimiter struct {
	config RateLimitConfig
	client *pkgredis.Client
}

// NewRedisRateLimiter loads the bucket script into Redis
func NewRedisRateLimiter(ctx context.Context, config RateLimitConfig) (*RedisRateLimiter, error) {
	if config.RedisClient == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if _, err := config.RedisClient.LoadScript(ctx, rateLimitScriptName, tokenBucketScript); err != nil {
		return nil, err
	}
	return &RedisRateLimiter{config: config, client: config.RedisClient}, nil
}

// Allow takes a token for key in Redis
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	now := float64(time.Now().UnixNano()) / 1e9
	ttl := int(math.Ceil(rl.config.Window.Seconds())) * 2
	if ttl <= 0 {
		ttl = 60
	}

	keys := []string{rl.config.KeyPrefix + rl.config.Scope + ":" + key}
	args := []interface{}{rl.config.ratePerSecond(), rl.config.burst(), now, ttl}

	result := rl.client.EvalShaByName(ctx, rateLimitScriptName, keys, args...)
	if pkgredis.IsNoScript(result.Err()) {
		if _, err := rl.client.LoadScript(ctx, rateLimitScriptName, tokenBucketScript); err != nil {
			return false, 0, err
		}
		result = rl.client.EvalShaByName(ctx, rateLimitScriptName, keys, args...)
	}

	values, err := result.Slice()
	if err != nil {
		return false, 0, err
	}
	if len(values) < 2 {
		return false, 0, fmt.Errorf("unexpected result length %d", len(values))
	}

	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	return allowed == 1, int(remaining), nil
}

// RateLimiter creates a rate limiting middleware. A Redis failure fails open.
func RateLimiter(config RateLimitConfig) gin.HandlerFunc {
	if config.Requests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.Logger == nil {
		config.Logger = logger.Get()
	}

	var localLimiter *LocalRateLimiter
	var redisLimiter *RedisRateLimiter

	if config.RedisClient != nil {
		var err error
		redisLimiter, err = NewRedisRateLimiter(context.Background(), config)
		if err != nil {
			config.Logger.Warn("redis rate limiter unavailable, using local buckets", zap.Error(err))
			redisLimiter = nil
		}
	}
	if redisLimiter == nil {
		localLimiter = NewLocalRateLimiter(config)
	}

	retryAfter := int(math.Ceil(config.Window.Seconds() / float64(config.Requests)))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		var allowed bool
		var remaining int

		if redisLimiter != nil {
			var err error
			allowed, remaining, err = redisLimiter.Allow(c.Request.Context(), key)
			if err != nil {
				config.Logger.WithContext(c.Request.Context()).Warn("rate limiter redis error", zap.Error(err))
				allowed = true
				remaining = config.burst() - 1
			}
		} else {
			allowed, remaining = localLimiter.Allow(config.Scope + ":" + key)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.TooManyRequests())
			return
		}

		c.Next()
	}
}
