package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"staffhub.org/internal/ratelimit"
)

func newTestLimiter(t *testing.T, limits map[ratelimit.Class]ratelimit.Limit) *ratelimit.Limiter {
	t.Helper()
	l, err := ratelimit.New(limits)
	if err != nil {
		t.Fatalf("ratelimit.New: %v", err)
	}
	return l
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitLoginBudget(t *testing.T) {
	h := RateLimit(okHandler(), newTestLimiter(t, nil))

	var rec *httptest.ResponseRecorder
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.1.2.3:4567"
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d rejected: %d", i+1, rec.Code)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != strconv.Itoa(4-i) {
			t.Fatalf("attempt %d: remaining = %s", i+1, got)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt allowed: %d", rec.Code)
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("limit header: %s", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("remaining header: %s", got)
	}
	reset, err := strconv.ParseInt(rec.Header().Get("X-RateLimit-Reset"), 10, 64)
	if err != nil || reset < time.Now().Unix() {
		t.Fatalf("reset header not a future epoch: %s", rec.Header().Get("X-RateLimit-Reset"))
	}
	if body := decodeErrorBody(t, rec); body.Message != "Rate limit exceeded. Please try again later." {
		t.Fatalf("unexpected 429 message: %q", body.Message)
	}
}

func TestRateLimitSeparatesLoginFromGeneral(t *testing.T) {
	h := RateLimit(okHandler(), newTestLimiter(t, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassLogin: {Requests: 1, Window: time.Hour},
	}))

	login := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	login.RemoteAddr = "10.1.2.3:4567"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, login)
	if rec.Code != http.StatusOK {
		t.Fatalf("first login rejected: %d", rec.Code)
	}

	login = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	login.RemoteAddr = "10.1.2.3:4567"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, login)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second login allowed: %d", rec.Code)
	}

	api := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	api.RemoteAddr = "10.1.2.3:4567"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, api)
	if rec.Code != http.StatusOK {
		t.Fatalf("general traffic throttled by exhausted login budget: %d", rec.Code)
	}
}

func TestRateLimitClientKeyPrecedence(t *testing.T) {
	h := RateLimit(okHandler(), newTestLimiter(t, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassLogin: {Requests: 1, Window: time.Hour},
	}))

	// Exhaust the budget for the forwarded client address.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "127.0.0.1:1111"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request rejected: %d", rec.Code)
	}

	// Same forwarded client through a different proxy socket is still over.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "127.0.0.2:2222"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("forwarded client not tracked across sockets: %d", rec.Code)
	}

	// A different client keyed by X-Real-IP has its own bucket.
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "127.0.0.1:1111"
	req.Header.Set("X-Real-IP", "198.51.100.9")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("distinct client throttled: %d", rec.Code)
	}
}

func TestRateLimitExemptPaths(t *testing.T) {
	h := RateLimit(okHandler(), newTestLimiter(t, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassGeneral: {Requests: 1, Window: time.Hour},
	}))

	for i := 0; i < 3; i++ {
		for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "10.1.2.3:4567"
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("%s throttled: %d", path, rec.Code)
			}
			if rec.Header().Get("X-RateLimit-Limit") != "" {
				t.Fatalf("%s carries rate headers", path)
			}
		}
	}
}
