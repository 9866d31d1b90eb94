package auth

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/transport"
	"github.com/frahmantamala/equipment-tracker/internal/user"
)

// RBACAuthorization guards routes by the role hierarchy
// Admin > Manager > Employee > Guest. It must run after AuthMiddleware.
type RBACAuthorization struct {
	*transport.BaseHandler
}

func NewRBACAuthorization(logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{BaseHandler: transport.NewBaseHandler(logger)}
}

func (ra *RBACAuthorization) RequireRole(min user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, ok := user.FromContext(r.Context())
			if !ok {
				ra.Logger.Warn("authorization check failed: user not found in context")
				ra.HandleServiceError(w, internal.NewUnauthorizedError("Unauthorized", internal.ErrCodeInvalidToken))
				return
			}

			if !current.Role.AtLeast(min) {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient role",
					"user_id", current.ID,
					"role", current.Role,
					"required_role", min)
				ra.HandleServiceError(w, internal.ErrInsufficientRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (ra *RBACAuthorization) RequireManager() func(http.Handler) http.Handler {
	return ra.RequireRole(user.RoleManager)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.RequireRole(user.RoleAdmin)
}
