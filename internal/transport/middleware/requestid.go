package middleware

import (
	"net/http"

	"github.com/frahmantamala/equipment-tracker/pkg/logger"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const TraceHeader = "X-Trace-ID"

// TraceID propagates the caller's X-Trace-ID (or a new uuid) into the
// context logger and echoes it on the response. Run it after chi's RequestID
// so both ids land on the same logger.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		fields := []any{"traceID", traceID}
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			fields = append(fields, "requestID", reqID)
		}
		ctx := logger.With(r.Context(), fields...)

		w.Header().Set(TraceHeader, traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
