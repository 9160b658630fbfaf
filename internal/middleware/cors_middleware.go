package middleware

import (
	"net/http"
	"strings"

	"buggfix/internal/config"
)

// CORSMiddleware answers preflight requests and stamps CORS headers for
// the browser playground. The allowed-origin list is parsed once from the
// config; requests from other origins pass through without the
// allow-origin header and let the browser enforce the block.
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	allowAll := false
	var origins []string
	for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
			continue
		}
		if o != "" {
			origins = append(origins, o)
		}
	}

	originAllowed := func(origin string) bool {
		for _, o := range origins {
			if o == origin {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case origin != "" && (allowAll || originAllowed(origin)):
				w.Header().Set("Access-Control-Allow-Origin", origin)
			case allowAll:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			w.Header().Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
