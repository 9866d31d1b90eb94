package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/golang-jwt/jwt/v5"
)

// NewJWTTokenGenerator creates a new JWT token generator. Zero TTLs fall back
// to 15 minutes for access tokens and 7 days for refresh tokens.
func NewJWTTokenGenerator(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *JWTTokenGenerator {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 24 * 7 * time.Hour
	}
	return &JWTTokenGenerator{
		AccessTokenSecret:  []byte(accessSecret),
		RefreshTokenSecret: []byte(refreshSecret),
		AccessTokenTTL:     accessTTL,
		RefreshTokenTTL:    refreshTTL,
		Issuer:             "equipment-tracker",
		now:                time.Now,
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(u *user.User) (string, error) {
	return j.sign(u, TokenTypeAccess, j.AccessTokenTTL, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) GenerateRefreshToken(u *user.User) (string, error) {
	return j.sign(u, TokenTypeRefresh, j.RefreshTokenTTL, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) ValidateAccessToken(tokenString string) (*Claims, error) {
	return j.parse(tokenString, TokenTypeAccess, j.AccessTokenSecret)
}

func (j *JWTTokenGenerator) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return j.parse(tokenString, TokenTypeRefresh, j.RefreshTokenSecret)
}

func (j *JWTTokenGenerator) sign(u *user.User, tokenType string, ttl time.Duration, secret []byte) (string, error) {
	now := j.clock()
	claims := &Claims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.Issuer,
			Subject:   u.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", internal.NewInternalError("failed to sign token", err)
	}
	return tokenString, nil
}

func (j *JWTTokenGenerator) parse(tokenString, tokenType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(j.clock))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType || claims.UserID == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

func (j *JWTTokenGenerator) clock() time.Time {
	if j.now == nil {
		return time.Now()
	}
	return j.now()
}
