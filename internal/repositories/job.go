package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/counsel-report/internal/models"
)

var ErrJobNotFound = errors.New("report job not found")

type ReportJobRepository interface {
	Create(job *models.ReportJob) error
	FindByID(id uuid.UUID) (*models.ReportJob, error)
	MarkProcessing(id uuid.UUID) error
	MarkCompleted(id uuid.UUID, artifactKey string) error
	MarkFailed(id uuid.UUID, stage, errorMsg string) error
	FailInterrupted(errorMsg string) ([]models.ReportJob, error)
}

type reportJobRepository struct {
	db *gorm.DB
}

func NewReportJobRepository(db *gorm.DB) ReportJobRepository {
	return &reportJobRepository{db: db}
}

func (r *reportJobRepository) Create(job *models.ReportJob) error {
	if err := r.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to create report job: %w", err)
	}
	return nil
}

func (r *reportJobRepository) FindByID(id uuid.UUID) (*models.ReportJob, error) {
	var job models.ReportJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find report job: %w", err)
	}
	return &job, nil
}

func (r *reportJobRepository) MarkProcessing(id uuid.UUID) error {
	return r.update(id, map[string]interface{}{
		"status": models.JobProcessing,
	})
}

func (r *reportJobRepository) MarkCompleted(id uuid.UUID, artifactKey string) error {
	return r.update(id, map[string]interface{}{
		"status":       models.JobCompleted,
		"artifact_key": artifactKey,
	})
}

func (r *reportJobRepository) MarkFailed(id uuid.UUID, stage, errorMsg string) error {
	return r.update(id, map[string]interface{}{
		"status":        models.JobFailed,
		"failed_stage":  stage,
		"error_message": errorMsg,
	})
}

// FailInterrupted closes jobs left queued or processing by a previous
// process and returns them as closed. Payloads are never stored, so they
// cannot be resumed.
func (r *reportJobRepository) FailInterrupted(errorMsg string) ([]models.ReportJob, error) {
	var jobs []models.ReportJob
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status IN ?", []models.JobStatus{models.JobQueued, models.JobProcessing}).
			Find(&jobs).Error; err != nil {
			return err
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(jobs))
		for i, job := range jobs {
			ids[i] = job.ID
		}
		now := time.Now()
		if err := tx.Model(&models.ReportJob{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":        models.JobFailed,
				"error_message": errorMsg,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		for i := range jobs {
			jobs[i].Status = models.JobFailed
			jobs[i].ErrorMessage = &errorMsg
			jobs[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close interrupted jobs: %w", err)
	}
	return jobs, nil
}

func (r *reportJobRepository) update(id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result := r.db.Model(&models.ReportJob{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update report job: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrJobNotFound
	}

	return nil
}
