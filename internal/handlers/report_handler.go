package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/models"
	"alfredoptarigan/counsel-report/internal/repositories"
	"alfredoptarigan/counsel-report/internal/services"
)

type ReportHandler struct {
	jobs   repositories.ReportJobRepository
	worker services.Worker
	log    zerolog.Logger
}

func NewReportHandler(jobs repositories.ReportJobRepository, worker services.Worker, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		jobs:   jobs,
		worker: worker,
		log:    log.With().Str("component", "report_handler").Logger(),
	}
}

// HandleCreate handles POST /integrated-reports. The outcome is delivered
// later through the completion webhook.
func (h *ReportHandler) HandleCreate(c *fiber.Ctx) error {
	var req models.ReportRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	job := &models.ReportJob{
		ID:               uuid.New(),
		CounselRequestID: req.CounselRequestID,
		Status:           models.JobQueued,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.jobs.Create(job); err != nil {
		h.log.Error().Err(err).Str("request_id", req.CounselRequestID).Msg("failed to create report job")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create report job",
		})
	}

	if err := h.worker.Enqueue(job.ID, &req); err != nil {
		h.log.Warn().Err(err).Str("request_id", req.CounselRequestID).Msg("report job rejected")
		if markErr := h.jobs.MarkFailed(job.ID, string(services.StageInit), err.Error()); markErr != nil {
			h.log.Warn().Err(markErr).Msg("failed to record rejected job")
		}
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.AcceptedResponse{
		Status:           "accepted",
		JobID:            job.ID.String(),
		CounselRequestID: req.CounselRequestID,
		Message:          "통합 보고서 생성 요청이 접수되었습니다.",
	})
}

// HandleGet handles GET /integrated-reports/:id
func (h *ReportHandler) HandleGet(c *fiber.Ctx) error {
	jobID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid report job ID format",
		})
	}

	job, err := h.jobs.FindByID(jobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Report job not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load report job",
		})
	}

	response := models.JobStatusResponse{
		ID:               job.ID.String(),
		CounselRequestID: job.CounselRequestID,
		Status:           string(job.Status),
	}

	if job.Status == models.JobCompleted {
		response.ArtifactKey = job.ArtifactKey
	}

	if job.Status == models.JobFailed {
		response.ErrorMessage = job.ErrorMessage
	}

	return c.JSON(response)
}
