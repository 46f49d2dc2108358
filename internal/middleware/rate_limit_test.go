package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkhub/pkg/logger"
)

// fakeLimiter counts per key like the redis window does, without the expiry.
type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, limit int, windowSeconds int) (bool, int64, error) {
	if l.err != nil {
		return false, 0, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	count := l.counts[key]
	return count <= int64(limit), count, nil
}

func newLimitedRouter(limiter *fakeLimiter, limit int, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewRateLimitMiddleware(limiter, logger.New("error"))

	router := gin.New()
	if userID != uuid.Nil {
		router.Use(func(c *gin.Context) {
			c.Set(ContextUserID, userID)
			c.Next()
		})
	}
	router.POST("/send", m.Limit(limit, 60), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func post(router *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLimitBlocksAboveThreshold(t *testing.T) {
	router := newLimitedRouter(newFakeLimiter(), 2, uuid.New())

	for i := 0; i < 2; i++ {
		if rec := post(router); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := post(router)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

// Two identities hitting the same route must consume separate windows.
func TestLimitKeysOnAuthenticatedUser(t *testing.T) {
	limiter := newFakeLimiter()

	alice := newLimitedRouter(limiter, 1, uuid.New())
	bob := newLimitedRouter(limiter, 1, uuid.New())

	if rec := post(alice); rec.Code != http.StatusOK {
		t.Fatalf("alice: status = %d, want 200", rec.Code)
	}
	if rec := post(bob); rec.Code != http.StatusOK {
		t.Errorf("bob: status = %d, want 200 (own window)", rec.Code)
	}
	if rec := post(alice); rec.Code != http.StatusTooManyRequests {
		t.Errorf("alice again: status = %d, want 429", rec.Code)
	}
}

func TestLimitFailsClosedOnStoreError(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	router := newLimitedRouter(limiter, 5, uuid.New())

	if rec := post(router); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
