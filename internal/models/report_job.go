package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportJob tracks one asynchronous export from request to finished CSV.
type ReportJob struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	StoreID     string          `json:"store_id" gorm:"index;not null"`
	Status      ReportJobStatus `json:"status" gorm:"default:PENDING"`
	RowCount    int             `json:"row_count"`
	CSV         []byte          `json:"-"`
	Error       *string         `json:"error,omitempty"`
	StartedAt   *time.Time      `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type ReportJobStatus string

const (
	ReportJobStatusPending   ReportJobStatus = "PENDING"
	ReportJobStatusRunning   ReportJobStatus = "RUNNING"
	ReportJobStatusCompleted ReportJobStatus = "COMPLETED"
	ReportJobStatusFailed    ReportJobStatus = "FAILED"
)

// Finished reports whether the job reached a terminal status.
func (j *ReportJob) Finished() bool {
	return j.Status == ReportJobStatusCompleted || j.Status == ReportJobStatusFailed
}

func (j *ReportJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}
