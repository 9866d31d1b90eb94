package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/go-chi/chi/middleware"
)

// Recovery turns a handler panic into a 500 in the usual error envelope.
// The panic value is logged, never returned to the client.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					"panic", rec,
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"url", r.URL.String(),
					"stack", string(debug.Stack()))

				_, body := internal.NewInternalError("Internal server error", nil).ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
