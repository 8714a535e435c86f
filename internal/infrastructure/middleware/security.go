package middleware

import (
	"net/http"
	"strings"
)

// SecurityHeadersMiddleware sets the response headers for pages embedded in the Shopify admin.
// Framing is limited to the admin and the merchant's own shop domains.
func SecurityHeadersMiddleware(extraFrameAncestors ...string) func(http.Handler) http.Handler {
	ancestors := append([]string{"https://admin.shopify.com", "https://*.myshopify.com"}, extraFrameAncestors...)
	csp := "frame-ancestors " + strings.Join(ancestors, " ") + ";"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			next.ServeHTTP(w, r)
		})
	}
}
