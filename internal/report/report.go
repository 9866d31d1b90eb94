package report

import (
	"time"

	reportDatamodel "github.com/frahmantamala/equipment-tracker/internal/core/datamodel/report"
)

type Category string

const (
	CategoryIssue      Category = "Issue"
	CategoryBug        Category = "Bug"
	CategorySuggestion Category = "Suggestion"
	CategoryOther      Category = "Other"
)

var Categories = []string{
	string(CategoryIssue),
	string(CategoryBug),
	string(CategorySuggestion),
	string(CategoryOther),
}

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var Priorities = []string{
	string(PriorityLow),
	string(PriorityMedium),
	string(PriorityHigh),
	string(PriorityCritical),
}

type Status string

const (
	StatusUnresolved Status = "Unresolved"
	StatusResolved   Status = "Resolved"
)

var Statuses = []string{string(StatusUnresolved), string(StatusResolved)}

// Report is a problem or suggestion filed by a user. Resolver fields are set
// only while the report is Resolved.
type Report struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       Category   `json:"category"`
	Priority       Priority   `json:"priority"`
	SubmitterID    string     `json:"submitterId"`
	SubmitterName  string     `json:"submitterName"`
	SubmitterEmail string     `json:"submitterEmail"`
	Status         Status     `json:"status"`
	ResolverID     *string    `json:"resolverId,omitempty"`
	ResolverName   *string    `json:"resolverName,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
}

func (r *Report) IsResolved() bool {
	return r.Status == StatusResolved
}

func ToDataModel(r *Report) *reportDatamodel.Report {
	return &reportDatamodel.Report{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       string(r.Category),
		Priority:       string(r.Priority),
		SubmitterID:    r.SubmitterID,
		SubmitterName:  r.SubmitterName,
		SubmitterEmail: r.SubmitterEmail,
		Status:         string(r.Status),
		ResolverID:     r.ResolverID,
		ResolverName:   r.ResolverName,
		CreatedAt:      r.CreatedAt,
		ResolvedAt:     r.ResolvedAt,
	}
}

func FromDataModel(r *reportDatamodel.Report) *Report {
	return &Report{
		ID:             r.ID,
		Title:          r.Title,
		Description:    r.Description,
		Category:       Category(r.Category),
		Priority:       Priority(r.Priority),
		SubmitterID:    r.SubmitterID,
		SubmitterName:  r.SubmitterName,
		SubmitterEmail: r.SubmitterEmail,
		Status:         Status(r.Status),
		ResolverID:     r.ResolverID,
		ResolverName:   r.ResolverName,
		CreatedAt:      r.CreatedAt,
		ResolvedAt:     r.ResolvedAt,
	}
}

func FromDataModelSlice(rows []*reportDatamodel.Report) []*Report {
	reports := make([]*Report, len(rows))
	for i, row := range rows {
		reports[i] = FromDataModel(row)
	}
	return reports
}
