package report

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/google/uuid"
)

// Repository returns internal.ErrReportNotFound for missing reports.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id string) (*Report, error)
	// List returns reports newest first; an empty status means all.
	List(ctx context.Context, status Status) ([]*Report, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]*Report, error)
	Update(ctx context.Context, r *Report) error
}

// Service tracks user reports. Concurrent edits are last-write-wins.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Submit files a report attributed to the submitter.
func (s *Service) Submit(ctx context.Context, submitter *user.User, dto SubmitReportDTO) (*Report, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	priority := PriorityMedium
	if dto.Priority != "" {
		priority = Priority(dto.Priority)
	}

	r := &Report{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(dto.Title),
		Description:    strings.TrimSpace(dto.Description),
		Category:       Category(dto.Category),
		Priority:       priority,
		SubmitterID:    submitter.ID,
		SubmitterName:  submitter.Name,
		SubmitterEmail: submitter.Email,
		Status:         StatusUnresolved,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error("failed to create report", "error", err, "submitter_id", submitter.ID)
		return nil, err
	}

	s.logger.Info("report submitted", "report_id", r.ID, "category", r.Category, "priority", r.Priority)
	return r, nil
}

func (s *Service) List(ctx context.Context, status Status) ([]*Report, error) {
	if status != "" && status != StatusUnresolved && status != StatusResolved {
		return nil, internal.NewValidationFieldError("status", "status must be Unresolved or Resolved", internal.ErrCodeInvalidStatus)
	}
	return s.repo.List(ctx, status)
}

func (s *Service) ListMine(ctx context.Context, submitterID string) ([]*Report, error) {
	return s.repo.ListBySubmitter(ctx, submitterID)
}

func (s *Service) Get(ctx context.Context, id string) (*Report, error) {
	return s.repo.GetByID(ctx, id)
}

// Resolve records who resolved the report and when. Resolving an already
// resolved report overwrites the attribution.
func (s *Service) Resolve(ctx context.Context, id string, resolver *user.User) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	resolverID, resolverName := resolver.ID, resolver.Name
	r.Status = StatusResolved
	r.ResolverID = &resolverID
	r.ResolverName = &resolverName
	r.ResolvedAt = &now

	if err := s.repo.Update(ctx, r); err != nil {
		s.logger.Error("failed to resolve report", "error", err, "report_id", id)
		return nil, err
	}

	s.logger.Info("report resolved", "report_id", id, "resolver_id", resolver.ID)
	return r, nil
}

// Reopen moves the report back to Unresolved and clears the resolver.
func (s *Service) Reopen(ctx context.Context, id string) (*Report, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.Status = StatusUnresolved
	r.ResolverID = nil
	r.ResolverName = nil
	r.ResolvedAt = nil

	if err := s.repo.Update(ctx, r); err != nil {
		s.logger.Error("failed to reopen report", "error", err, "report_id", id)
		return nil, err
	}
	return r, nil
}
