// Package security applies response hardening headers for the JSON API.
package security

import (
	"fmt"
	"net/http"
)

const hstsMaxAge = 31536000

// Headers sets the baseline security headers on every response. HSTS is
// only emitted on TLS connections.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")

		if r.TLS != nil {
			h.Set("Strict-Transport-Security",
				fmt.Sprintf("max-age=%d; includeSubDomains", hstsMaxAge))
		}

		next.ServeHTTP(w, r)
	})
}
