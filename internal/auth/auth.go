package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenGenerator creates and verifies signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(u *user.User) (string, error)
	GenerateRefreshToken(u *user.User) (string, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (*Claims, error)
}

// UserLookup is the part of the user service authentication needs.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type AuthTokens struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         *user.User `json:"user,omitempty"`
}

// Claims represents JWT token claims
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      user.Role `json:"role"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string
	now                func() time.Time
}
