package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"staffhub.org/internal/obs"
	"staffhub.org/internal/ratelimit"
)

const loginPath = "/api/auth/login"

var rateLimitExemptPaths = []string{"/healthz", "/readyz", "/metrics"}

// RateLimit rejects over-quota requests before authentication or business
// logic run. Login traffic and general API traffic are tracked in separate
// buckets per client, so a burst of API calls cannot starve login attempts
// or vice versa.
func RateLimit(next http.Handler, limiter *ratelimit.Limiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		for _, exempt := range rateLimitExemptPaths {
			if path == exempt {
				next.ServeHTTP(w, r)
				return
			}
		}

		var class ratelimit.Class
		switch {
		case path == loginPath:
			class = ratelimit.ClassLogin
		case strings.HasPrefix(path, "/api"):
			class = ratelimit.ClassGeneral
		default:
			next.ServeHTTP(w, r)
			return
		}

		bucket := limiter.Bucket(clientKey(r), class)
		allowed := bucket.TryConsume()
		setRateHeaders(w, limiter.Limit(class), bucket)
		if !allowed {
			obs.RateLimited(string(class))
			writeError(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setRateHeaders(w http.ResponseWriter, lim ratelimit.Limit, bucket *ratelimit.Bucket) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(lim.Requests))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, bucket.Available())))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(bucket.ResetTime().Unix(), 10))
}

// clientKey identifies the client: first X-Forwarded-For entry, then
// X-Real-IP, then the socket address.
func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
