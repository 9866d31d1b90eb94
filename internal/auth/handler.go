package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/transport"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/frahmantamala/equipment-tracker/pkg/logger"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	CurrentUser(ctx context.Context, claims *Claims) (*user.User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tokens, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("Login: authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	tokens, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.Logger.Warn("RefreshToken: token refresh failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tokens)
}

// AuthMiddleware resolves the bearer token to the current user and stores it
// in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.Logger.Warn("auth middleware: missing authorization token", "path", r.URL.Path)
			h.HandleServiceError(w, internal.NewUnauthorizedError("Missing authorization token", internal.ErrCodeInvalidToken))
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			h.Logger.Warn("auth middleware: token validation failed", "error", err)
			h.HandleServiceError(w, err)
			return
		}

		current, err := h.Service.CurrentUser(r.Context(), claims)
		if err != nil {
			h.Logger.Warn("auth middleware: failed to load user", "user_id", claims.UserID, "error", err)
			h.HandleServiceError(w, err)
			return
		}

		ctx := user.NewContext(r.Context(), current)
		ctx = internal.ContextWithActorID(ctx, current.ID)
		ctx = logger.With(ctx, "userID", current.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
