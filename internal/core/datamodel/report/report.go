package report

import "time"

type Report struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)"`
	Title          string     `gorm:"column:title;not null"`
	Description    string     `gorm:"column:description;not null"`
	Category       string     `gorm:"column:category;not null"`
	Priority       string     `gorm:"column:priority;not null"`
	SubmitterID    string     `gorm:"column:submitter_id;not null;index"`
	SubmitterName  string     `gorm:"column:submitter_name"`
	SubmitterEmail string     `gorm:"column:submitter_email"`
	Status         string     `gorm:"column:status;not null;index"`
	ResolverID     *string    `gorm:"column:resolver_id"`
	ResolverName   *string    `gorm:"column:resolver_name"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime:false"`
	ResolvedAt     *time.Time `gorm:"column:resolved_at"`
}

func (Report) TableName() string {
	return "reports"
}
