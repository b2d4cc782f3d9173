package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/prohmpiriya/event-management/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRateLimiter_Allow(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.Requests = 3
	cfg.BurstSize = 3
	rl := NewLocalRateLimiter(cfg)
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		allowed, _ := rl.Allow("client-a")
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, remaining := rl.Allow("client-a")
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	// other keys keep their own bucket
	allowed, _ = rl.Allow("client-b")
	assert.True(t, allowed)

	// 3 per minute refills one token every 20s
	now = now.Add(20 * time.Second)
	allowed, _ = rl.Allow("client-a")
	assert.True(t, allowed)

	allowedTotal, rejectedTotal := rl.GetStats()
	assert.Equal(t, uint64(5), allowedTotal)
	assert.Equal(t, uint64(1), rejectedTotal)
}

func TestRateLimiter_Middleware(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.Requests = 2
	cfg.BurstSize = 2
	cfg.Scope = "attendees"

	router := gin.New()
	router.Use(RateLimiter(cfg))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if i == 2 {
			assert.Equal(t, "30", w.Header().Get("Retry-After"))
			assert.JSONEq(t, `{"error":"Too Many Attempts."}`, w.Body.String())
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_Unlimited(t *testing.T) {
	router := gin.New()
	router.Use(RateLimiter(RateLimitConfig{Requests: 0}))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_CustomKey(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.Requests = 1
	cfg.BurstSize = 1
	cfg.KeyFunc = func(c *gin.Context) string { return c.GetHeader("X-User") }

	router := gin.New()
	router.Use(RateLimiter(cfg))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, user := range []string{"a", "b"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "first request for %s", user)
	}
}

func TestRedisRateLimiter_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	ctx := context.Background()
	redisCfg := pkgredis.DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		redisCfg.Host = host
	}
	client, err := pkgredis.NewClient(ctx, redisCfg)
	require.NoError(t, err)
	defer client.Close()

	cfg := DefaultRateLimitConfig()
	cfg.Requests = 2
	cfg.BurstSize = 2
	cfg.Scope = "it-" + time.Now().Format("150405.000000")
	cfg.RedisClient = client

	rl, err := NewRedisRateLimiter(ctx, cfg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		allowed, _, err := rl.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, _, err := rl.Allow(ctx, "client")
	require.NoError(t, err)
	assert.False(t, allowed)
}
