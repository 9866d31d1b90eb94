package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"golang.org/x/crypto/bcrypt"
)

// Service is the main auth service with dependencies
type Service struct {
	users          UserLookup
	tokenGenerator TokenGenerator
	logger         *slog.Logger
}

func NewService(users UserLookup, tokenGen TokenGenerator, logger *slog.Logger) *Service {
	return &Service{
		users:          users,
		tokenGenerator: tokenGen,
		logger:         logger,
	}
}

// Authenticate validates credentials and returns tokens. Unknown emails and
// wrong passwords produce the same error.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByEmail(ctx, dto.Email)
	if errors.Is(err, internal.ErrUserNotFound) {
		return AuthTokens{}, internal.ErrInvalidCredentials
	}
	if err != nil {
		return AuthTokens{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Info("login rejected", "user_id", u.ID)
		return AuthTokens{}, internal.ErrInvalidCredentials
	}

	return s.issue(u)
}

// RefreshTokens exchanges a refresh token for a new pair. The role is re-read
// so role changes take effect on refresh.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, internal.ErrUserNotFound) {
		return AuthTokens{}, internal.ErrInvalidToken
	}
	if err != nil {
		return AuthTokens{}, err
	}

	return s.issue(u)
}

func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateAccessToken(tokenString)
}

// CurrentUser resolves the account behind validated claims.
func (s *Service) CurrentUser(ctx context.Context, claims *Claims) (*user.User, error) {
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, internal.ErrUserNotFound) {
		return nil, internal.ErrInvalidToken
	}
	return u, err
}

func (s *Service) issue(u *user.User) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(u)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(u)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         u,
	}, nil
}
