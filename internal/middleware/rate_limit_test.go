package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("key") {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}
	if rl.Allow("key") {
		t.Error("request over the limit was allowed")
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	if !rl.Allow("a") {
		t.Fatal("first request for key a denied")
	}
	if !rl.Allow("b") {
		t.Error("first request for key b denied")
	}
	if rl.Allow("a") {
		t.Error("second request for key a allowed")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	if got := rl.Remaining("key"); got != 5 {
		t.Errorf("initial remaining = %d, want 5", got)
	}
	rl.Allow("key")
	rl.Allow("key")
	if got := rl.Remaining("key"); got != 3 {
		t.Errorf("remaining = %d, want 3", got)
	}
}

func TestResetRequestRateLimiter_Returns429(t *testing.T) {
	limiter := NewResetRequestRateLimiter()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := limiter.Limit(next)

	var lastCode int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", nil)
		req.RemoteAddr = "198.51.100.10:4321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code

		if i < 5 && rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
		if i < 5 && rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Errorf("request %d missing X-RateLimit-Remaining header", i+1)
		}
	}
	if lastCode != http.StatusTooManyRequests {
		t.Errorf("sixth request status = %d, want 429", lastCode)
	}
}

func TestResetRequestRateLimiter_PrefersForwardedFor(t *testing.T) {
	limiter := NewResetRequestRateLimiter()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := limiter.Limit(next)

	// Exhaust the limit for one forwarded client
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", nil)
		req.RemoteAddr = "10.0.0.1:1111"
		req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	// A different forwarded client behind the same proxy is unaffected
	req := httptest.NewRequest(http.MethodPost, "/auth/forgot-password", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	req.Header.Set("X-Forwarded-For", "203.0.113.99")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}
