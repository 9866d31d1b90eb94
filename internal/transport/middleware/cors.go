package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS builds the cors handler from the comma-separated http_server.allowed_origins
// value. "*" allows any origin.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", TraceHeader, "X-Request-Id"},
		ExposedHeaders: []string{TraceHeader},
		MaxAge:         600,
	})
}
