package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ctxlog "github.com/frahmantamala/equipment-tracker/pkg/logger"
	"github.com/go-chi/chi/middleware"
)

// maxLoggedBody caps how much of a request or response body is logged.
const maxLoggedBody = 4096

// sensitiveFields are matched case-insensitively as substrings of header
// names and JSON keys.
var sensitiveFields = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"api_key",
	"apikey",
	"credential",
	"cookie",
	"id_number",
	"idnumber",
}

// RequestLogger logs each request and its response with credentials masked.
// A logger placed on the context by TraceID takes precedence over base.
func RequestLogger(base *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			logger := ctxlog.FromOr(r.Context(), base)
			reqID := middleware.GetReqID(r.Context())

			var body []byte
			if r.Body != nil {
				body, _ = io.ReadAll(r.Body)
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			logger.Info("incoming request",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"remote_addr", r.RemoteAddr,
				"headers", maskHeaders(r.Header),
				"body", maskBody(body),
			)

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			level := slog.LevelInfo
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "response",
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"status_code", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_size", rec.size,
				"body", maskBody(rec.body.Bytes()),
			)
		})
	}
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	size   int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - rw.body.Len(); room > 0 {
		if len(b) < room {
			room = len(b)
		}
		rw.body.Write(b[:room])
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}

func maskHeaders(headers http.Header) map[string]string {
	masked := make(map[string]string, len(headers))
	for name, values := range headers {
		if isSensitive(name) {
			masked[name] = "[FILTERED]"
			continue
		}
		masked[name] = strings.Join(values, ", ")
	}
	return masked
}

func maskBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		if isSensitive(string(body)) {
			return "[FILTERED - Contains sensitive data]"
		}
		return string(body)
	}

	out, err := json.Marshal(maskJSON(data))
	if err != nil {
		return "[ERROR - Failed to marshal filtered JSON]"
	}
	return string(out)
}

func maskJSON(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		masked := make(map[string]interface{}, len(v))
		for key, value := range v {
			if isSensitive(key) {
				masked[key] = "[FILTERED]"
				continue
			}
			masked[key] = maskJSON(value)
		}
		return masked
	case []interface{}:
		masked := make([]interface{}, len(v))
		for i, item := range v {
			masked[i] = maskJSON(item)
		}
		return masked
	default:
		return v
	}
}
