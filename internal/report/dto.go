package report

import (
	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/core/common/validation"
)

type SubmitReportDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Priority    string `json:"priority,omitempty"`
}

func (d SubmitReportDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("title", d.Title).Required().MaxLength(200)
	v.Field("description", d.Description).Required().MaxLength(5000)
	v.Field("category", d.Category).Required().OneOf(Categories, internal.ErrCodeValidationFailed)
	v.Field("priority", d.Priority).OneOf(Priorities, internal.ErrCodeValidationFailed)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
