package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type countingLimiter struct {
	mu    sync.Mutex
	limit int
	seen  map[string]int
	err   error
}

func (l *countingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.seen == nil {
		l.seen = map[string]int{}
	}
	l.seen[key]++
	return l.seen[key] <= l.limit, nil
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	t.Parallel()

	limiter := &countingLimiter{limit: 2}
	var hits int
	handler := RateLimit(limiter, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/blockchain", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)

		if i < 2 && res.Code != http.StatusOK {
			t.Fatalf("request %d rejected with %d", i, res.Code)
		}
		if i == 2 && res.Code != http.StatusTooManyRequests {
			t.Fatalf("request over the limit answered %d, want 429", res.Code)
		}
	}
	if hits != 2 {
		t.Fatalf("handler ran %d times, want 2", hits)
	}
}

func TestRateLimitKeysByCallerIP(t *testing.T) {
	t.Parallel()

	limiter := &countingLimiter{limit: 1}
	handler := RateLimit(limiter, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, addr := range []string{"203.0.113.7:1", "198.51.100.9:2"} {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/blockchain", nil)
		req.RemoteAddr = addr
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("first request from %s rejected: %d", addr, res.Code)
		}
	}
	if len(limiter.seen) != 2 {
		t.Fatalf("expected per-ip keys, got %v", limiter.seen)
	}
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	t.Parallel()

	limiter := &countingLimiter{err: errors.New("redis down")}
	var hit bool
	handler := RateLimit(limiter, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/blockchain", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK || !hit {
		t.Fatalf("limiter outage must fail open, got %d", res.Code)
	}
}
