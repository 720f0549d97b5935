package http

import (
	"net/http"
	"strings"
)

const (
	cspAPI     = "default-src 'none'; frame-ancestors 'none'"
	cspSwagger = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
	hstsValue  = "max-age=63072000; includeSubDomains"
)

// SecurityHeaders returns middleware that sets hardening headers on every
// response. HSTS is only sent when hsts is true, which NewRouter enables
// outside development.
func SecurityHeaders(hsts bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", contentSecurityPolicy(r.URL.Path))
			if hsts {
				h.Set("Strict-Transport-Security", hstsValue)
			}
			// stats are public aggregates; everything else is per-user
			if !strings.HasPrefix(r.URL.Path, "/stats") {
				h.Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// swagger UI renders inline scripts and styles
func contentSecurityPolicy(path string) string {
	if strings.HasPrefix(path, "/swagger/") {
		return cspSwagger
	}
	return cspAPI
}
