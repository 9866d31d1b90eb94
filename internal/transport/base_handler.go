package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a plain error response for transport-level failures such
// as undecodable bodies.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Warn("http error", "status", status, "message", message)

	code := internal.ErrCodeValidationFailed
	errType := internal.ErrorTypeValidation
	switch status {
	case http.StatusUnauthorized:
		errType, code = internal.ErrorTypeUnauthorized, internal.ErrCodeInvalidToken
	case http.StatusForbidden:
		errType, code = internal.ErrorTypeForbidden, internal.ErrCodeInsufficientRole
	case http.StatusNotFound:
		errType, code = internal.ErrorTypeNotFound, "NOT_FOUND"
	case http.StatusInternalServerError:
		errType, code = internal.ErrorTypeInternal, "INTERNAL_ERROR"
	}

	h.WriteJSON(w, status, internal.Response{Error: &internal.AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: status,
	}})
}

// HandleServiceError renders errors returned by services. AppErrors keep their
// status code; anything else becomes a 500 without leaking the cause.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		h.Logger.Error("unhandled service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	status, body := appErr.ToHTTPResponse()
	if status >= http.StatusInternalServerError {
		h.Logger.Error("service error", "code", appErr.Code, "error", appErr)
	} else {
		h.Logger.Debug("service rejected request", "code", appErr.Code, "message", appErr.Message)
	}
	h.WriteJSON(w, status, body)
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}
