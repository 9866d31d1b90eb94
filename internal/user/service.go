package user

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Repository returns internal.ErrUserNotFound for missing rows and
// persistence errors for everything else.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo       Repository
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

func NewService(repo Repository, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates a new account. The first role defaults to Employee.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	email := normalizeEmail(dto.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	role := RoleEmployee
	if dto.Role != "" {
		role = Role(dto.Role)
	}

	now := s.now().UTC()
	u := &User{
		ID:                uuid.NewString(),
		Name:              strings.TrimSpace(dto.Name),
		Email:             email,
		Role:              role,
		Phone:             dto.Phone,
		IDNumber:          dto.IDNumber,
		Company:           dto.Company,
		HasDriversLicense: dto.HasDriversLicense,
		PasswordHash:      string(hash),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", email)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(email))
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

func (s *Service) Update(ctx context.Context, id string, dto UpdateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Email != nil {
		email := normalizeEmail(*dto.Email)
		if email != u.Email {
			if err := s.ensureEmailFree(ctx, email, u.ID); err != nil {
				return nil, err
			}
			u.Email = email
		}
	}
	if dto.Name != nil {
		u.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Role != nil {
		u.Role = Role(*dto.Role)
	}
	if dto.Phone != nil {
		u.Phone = dto.Phone
	}
	if dto.IDNumber != nil {
		u.IDNumber = dto.IDNumber
	}
	if dto.Company != nil {
		u.Company = dto.Company
	}
	if dto.HasDriversLicense != nil {
		u.HasDriversLicense = *dto.HasDriversLicense
	}
	u.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, u); err != nil {
		s.logger.Error("failed to update user", "error", err, "user_id", id)
		return nil, err
	}
	return u, nil
}

// Delete removes the account permanently. Checkout records keep the user id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, internal.ErrUserNotFound) {
			s.logger.Error("failed to delete user", "error", err, "user_id", id)
		}
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, ownerID string) error {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, internal.ErrUserNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != ownerID:
		return internal.ErrEmailTaken
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
