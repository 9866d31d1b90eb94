package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/equipment-tracker/internal"
	reportDatamodel "github.com/frahmantamala/equipment-tracker/internal/core/datamodel/report"
	"github.com/frahmantamala/equipment-tracker/internal/report"
	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) report.Repository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	if err := r.db.WithContext(ctx).Create(report.ToDataModel(rep)).Error; err != nil {
		return internal.NewPersistenceError("failed to create report", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*report.Report, error) {
	var row reportDatamodel.Report
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrReportNotFound
	}
	if err != nil {
		return nil, internal.NewPersistenceError("failed to load report", err)
	}
	return report.FromDataModel(&row), nil
}

func (r *ReportRepository) List(ctx context.Context, status report.Status) ([]*report.Report, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var rows []*reportDatamodel.Report
	if err := query.Find(&rows).Error; err != nil {
		return nil, internal.NewPersistenceError("failed to list reports", err)
	}
	return report.FromDataModelSlice(rows), nil
}

func (r *ReportRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]*report.Report, error) {
	var rows []*reportDatamodel.Report
	err := r.db.WithContext(ctx).
		Where("submitter_id = ?", submitterID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, internal.NewPersistenceError("failed to list reports", err)
	}
	return report.FromDataModelSlice(rows), nil
}

// Update overwrites the stored report, nil resolver fields included.
func (r *ReportRepository) Update(ctx context.Context, rep *report.Report) error {
	result := r.db.WithContext(ctx).
		Model(&reportDatamodel.Report{}).
		Where("id = ?", rep.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(report.ToDataModel(rep))
	if result.Error != nil {
		return internal.NewPersistenceError("failed to update report", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrReportNotFound
	}
	return nil
}
