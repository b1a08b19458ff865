package server

import (
	"fmt"
	"net/http"

	"github.com/clickmoment/clickmoment/internal/httputil"
)

type SecurityConfig struct {
	BaseURL          string
	StorageEndpoint  string
	AnalysisEndpoint string
}

func securityHeaders(cfg SecurityConfig) func(http.Handler) http.Handler {
	strictTransport := cfg.BaseURL != "" && hasHTTPS(cfg.BaseURL)

	// Presigned video URLs come from the storage endpoint and candidate
	// frame images from the analysis backend, so both join the media and
	// image sources.
	remoteSuffix := ""
	if cfg.StorageEndpoint != "" {
		remoteSuffix += " " + cfg.StorageEndpoint
	}
	if cfg.AnalysisEndpoint != "" {
		remoteSuffix += " " + cfg.AnalysisEndpoint
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nonce := httputil.GenerateNonce()
			ctx := httputil.ContextWithNonce(r.Context(), nonce)

			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "SAMEORIGIN")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), screen-wake-lock=(), display-capture=()")

			csp := fmt.Sprintf(
				"default-src 'self'; img-src 'self' data:%s; media-src 'self' data:%s; script-src 'self' 'nonce-%s'; style-src 'self' 'nonce-%s'; connect-src 'self'%s; frame-ancestors 'self';",
				remoteSuffix, remoteSuffix, nonce, nonce, remoteSuffix,
			)
			w.Header().Set("Content-Security-Policy", csp)

			if strictTransport {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasHTTPS(baseURL string) bool {
	return len(baseURL) >= 8 && baseURL[:8] == "https://"
}
