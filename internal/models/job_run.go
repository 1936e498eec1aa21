package models

import (
	"time"

	"gorm.io/datatypes"
)

// JobRun records that a named daily job completed for a calendar date.
type JobRun struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	JobName string         `gorm:"type:text;not null;uniqueIndex:idx_job_runs_name_date,priority:1"`
	RunDate datatypes.Date `gorm:"not null;uniqueIndex:idx_job_runs_name_date,priority:2"`
	Created int            `gorm:"not null;default:0"` // Rows produced by the run.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Completion timestamp.
}
