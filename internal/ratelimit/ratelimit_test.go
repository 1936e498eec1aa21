package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/budgetwise/budgetwise-api/internal/access"
	"github.com/budgetwise/budgetwise-api/internal/config"
	"github.com/budgetwise/budgetwise-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Unix(1_700_000_000, 0)

	for i := 0; i < 2; i++ {
		res, err := l.Allow(context.Background(), "k", 2, now)
		if err != nil || !res.Allowed {
			t.Fatalf("hit %d: expected allowed, got %+v (%v)", i, res, err)
		}
	}
	res, _ := l.Allow(context.Background(), "k", 2, now.Add(500*time.Millisecond))
	if res.Allowed {
		t.Fatalf("expected third hit in the same second to be rejected")
	}
	res, _ = l.Allow(context.Background(), "k", 2, now.Add(time.Second))
	if !res.Allowed || res.Remaining != 1 {
		t.Fatalf("expected fresh window, got %+v", res)
	}
}

func TestMemoryLimiter_SweepsStaleKeys(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Unix(1_700_000_000, 0)
	_, _ = l.Allow(context.Background(), "old", 1, now)
	_, _ = l.Allow(context.Background(), "new", 1, now.Add(2*sweepEvery))

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.counters["old"]; ok {
		t.Fatalf("expected stale key to be swept")
	}
}

func TestLimitFor_ByRole(t *testing.T) {
	cfg := config.RateLimitConfig{Limit: 5, ServiceLimit: 50}
	if got := LimitFor(cfg, &models.User{Role: models.RoleBasic}); got != 5 {
		t.Fatalf("expected basic limit 5, got %d", got)
	}
	if got := LimitFor(cfg, &models.User{Role: models.RoleServiceAccount}); got != 50 {
		t.Fatalf("expected service limit 50, got %d", got)
	}
	if got := LimitFor(cfg, &models.User{Role: models.RoleAdmin}); got != 50 {
		t.Fatalf("expected admin to use service limit, got %d", got)
	}
	if KeyFor(uuid.Nil) != "" {
		t.Fatalf("expected empty key for nil id")
	}
}

func TestManager_FallsBackWhenRedisDown(t *testing.T) {
	cfg := config.RateLimitConfig{Redis: config.RedisConfig{Enabled: true, Addr: "127.0.0.1:1"}}
	now := time.Unix(1_700_000_000, 0)
	m := NewManager(cfg, func() time.Time { return now }, func(opts *redis.Options) *redis.Client {
		opts.DialTimeout = 50 * time.Millisecond
		opts.MaxRetries = -1
		return redis.NewClient(opts)
	}, nil)
	defer func() { _ = m.Close() }()

	res, err := m.Allow(context.Background(), "k", 1)
	if err != nil || !res.Allowed {
		t.Fatalf("expected memory fallback to allow, got %+v (%v)", res, err)
	}
	if !m.isBreakerActive(now) {
		t.Fatalf("expected breaker to trip")
	}
	res, _ = m.Allow(context.Background(), "k", 1)
	if res.Allowed {
		t.Fatalf("expected memory limiter to reject second hit")
	}
}

func TestMiddleware_Rejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Unix(1_700_000_000, 0)
	m := NewManager(config.RateLimitConfig{Limit: 1}, func() time.Time { return now }, nil, nil)
	user := &models.User{ID: uuid.New(), Role: models.RoleBasic}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		access.SetCaller(c, user)
		c.Next()
	})
	r.Use(Middleware(m))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected remaining header 0, got %q", second.Header().Get("X-RateLimit-Remaining"))
	}
}
