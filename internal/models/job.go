package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ReportJob is the status ledger of one report request. It never stores the
// request payload itself.
type ReportJob struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CounselRequestID string    `gorm:"type:text;index" json:"counsel_request_id"`
	Status           JobStatus `gorm:"not null;default:'queued'" json:"status"`
	ArtifactKey      *string   `gorm:"type:text" json:"integrated_report_s3_key,omitempty"`
	FailedStage      *string   `gorm:"type:text" json:"failed_stage,omitempty"`
	ErrorMessage     *string   `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ReportJob) TableName() string {
	return "report_jobs"
}
