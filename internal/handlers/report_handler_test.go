package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/counsel-report/internal/models"
	"alfredoptarigan/counsel-report/internal/repositories"
	"alfredoptarigan/counsel-report/internal/services"
)

const testSecret = "internal-secret"

type memoryJobs struct {
	jobs      map[uuid.UUID]*models.ReportJob
	createErr error
	findErr   error
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: map[uuid.UUID]*models.ReportJob{}}
}

func (m *memoryJobs) Create(job *models.ReportJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memoryJobs) FindByID(id uuid.UUID) (*models.ReportJob, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	job, ok := m.jobs[id]
	if !ok {
		return nil, repositories.ErrJobNotFound
	}
	return job, nil
}

func (m *memoryJobs) MarkProcessing(id uuid.UUID) error {
	m.jobs[id].Status = models.JobProcessing
	return nil
}

func (m *memoryJobs) MarkCompleted(id uuid.UUID, key string) error {
	m.jobs[id].Status = models.JobCompleted
	m.jobs[id].ArtifactKey = &key
	return nil
}

func (m *memoryJobs) MarkFailed(id uuid.UUID, stage, msg string) error {
	m.jobs[id].Status = models.JobFailed
	m.jobs[id].FailedStage = &stage
	m.jobs[id].ErrorMessage = &msg
	return nil
}

func (m *memoryJobs) FailInterrupted(string) ([]models.ReportJob, error) { return nil, nil }

type fakeWorker struct {
	err      error
	enqueued []*models.ReportRequest
}

func (w *fakeWorker) Start(context.Context) {}

func (w *fakeWorker) Stop() {}

func (w *fakeWorker) Enqueue(_ uuid.UUID, req *models.ReportRequest) error {
	if w.err != nil {
		return w.err
	}
	w.enqueued = append(w.enqueued, req)
	return nil
}

func setupApp(jobs *memoryJobs, worker *fakeWorker) *fiber.App {
	app := fiber.New()
	h := NewReportHandler(jobs, worker, zerolog.Nop())

	reports := app.Group("/api/v1/integrated-reports", RequireInternalKey(testSecret))
	reports.Post("/", h.HandleCreate)
	reports.Get("/:id", h.HandleGet)
	return app
}

const validPayload = `{
	"counsel_request_id": "5f1c9a2e-7d44-4b1e-9a0c-2f3e4d5c6b7a",
	"child_id": "c-1",
	"child_name": "김민수",
	"cover_info": {"requestDate": {"year": 2025, "month": 1, "day": 15}, "centerName": "행복센터", "counselorName": "박상담"},
	"basic_info": {"childInfo": {"name": "김민수", "gender": "MALE", "age": 10, "grade": "4학년"}, "careType": "GENERAL"},
	"psychological_info": {"medicalHistory": "", "specialNotes": ""},
	"request_motivation": {"motivation": "또래 관계 어려움", "goals": "정서 안정"},
	"attached_assessments": [{"assessmentType": "KPRC_CO_SG_E", "reportS3Key": "assessments/kprc.pdf", "scores": {"ers_t_score": 25}}]
}`

func doRequest(t *testing.T, app *fiber.App, method, path, key, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(services.InternalAPIKeyHeader, key)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestCreateRequiresInternalKey(t *testing.T) {
	app := setupApp(newMemoryJobs(), &fakeWorker{})

	for _, key := range []string{"", "wrong"} {
		status, body := doRequest(t, app, http.MethodPost, "/api/v1/integrated-reports/", key, validPayload)
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, "Invalid internal API key", body["error"])
	}
}

func TestCreateAcceptsValidRequest(t *testing.T) {
	jobs := newMemoryJobs()
	worker := &fakeWorker{}
	app := setupApp(jobs, worker)

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/integrated-reports/", testSecret, validPayload)

	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, "5f1c9a2e-7d44-4b1e-9a0c-2f3e4d5c6b7a", body["counsel_request_id"])

	jobID, err := uuid.Parse(body["job_id"].(string))
	require.NoError(t, err)
	require.Contains(t, jobs.jobs, jobID)
	assert.Equal(t, models.JobQueued, jobs.jobs[jobID].Status)

	require.Len(t, worker.enqueued, 1)
	assert.Equal(t, "김민수", worker.enqueued[0].ChildName)
	assert.Equal(t, models.InstrumentKPRC, worker.enqueued[0].AttachedAssessments[0].AssessmentType)
}

func TestCreateRejectsInvalidBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed json", `{"counsel_request_id":`, "Invalid request payload"},
		{"missing request id", strings.Replace(validPayload, `"5f1c9a2e-7d44-4b1e-9a0c-2f3e4d5c6b7a"`, `""`, 1), "counsel_request_id is required"},
		{"unknown instrument", strings.Replace(validPayload, "KPRC_CO_SG_E", "MMPI", 1), `attached_assessments[0]: unknown assessmentType "MMPI"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newMemoryJobs()
			app := setupApp(jobs, &fakeWorker{})

			status, body := doRequest(t, app, http.MethodPost, "/api/v1/integrated-reports/", testSecret, tt.body)

			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.wantErr, body["error"])
			assert.Empty(t, jobs.jobs)
		})
	}
}

func TestCreateWhenQueueIsFull(t *testing.T) {
	jobs := newMemoryJobs()
	app := setupApp(jobs, &fakeWorker{err: services.ErrQueueFull})

	status, body := doRequest(t, app, http.MethodPost, "/api/v1/integrated-reports/", testSecret, validPayload)

	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "report queue is full", body["error"])

	require.Len(t, jobs.jobs, 1)
	for _, job := range jobs.jobs {
		assert.Equal(t, models.JobFailed, job.Status)
		assert.Equal(t, "INIT", *job.FailedStage)
	}
}

func TestCreateWhenLedgerFails(t *testing.T) {
	jobs := newMemoryJobs()
	jobs.createErr = errors.New("connection refused")
	worker := &fakeWorker{}
	app := setupApp(jobs, worker)

	status, _ := doRequest(t, app, http.MethodPost, "/api/v1/integrated-reports/", testSecret, validPayload)

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, worker.enqueued)
}

func TestGetReportJob(t *testing.T) {
	jobs := newMemoryJobs()
	completed := uuid.New()
	failed := uuid.New()
	key := "integrated-reports/IR_a.pdf"
	stage := "UPLOADING"
	msg := "upload: unexpected status 500"
	jobs.jobs[completed] = &models.ReportJob{ID: completed, CounselRequestID: "r1", Status: models.JobCompleted, ArtifactKey: &key}
	jobs.jobs[failed] = &models.ReportJob{ID: failed, CounselRequestID: "r2", Status: models.JobFailed, FailedStage: &stage, ErrorMessage: &msg}
	app := setupApp(jobs, &fakeWorker{})

	t.Run("completed", func(t *testing.T) {
		status, body := doRequest(t, app, http.MethodGet, "/api/v1/integrated-reports/"+completed.String(), testSecret, "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "completed", body["status"])
		assert.Equal(t, key, body["integrated_report_s3_key"])
		assert.NotContains(t, body, "error_message")
	})

	t.Run("failed", func(t *testing.T) {
		status, body := doRequest(t, app, http.MethodGet, "/api/v1/integrated-reports/"+failed.String(), testSecret, "")
		assert.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "failed", body["status"])
		assert.Equal(t, msg, body["error_message"])
		assert.NotContains(t, body, "integrated_report_s3_key")
	})

	t.Run("unknown", func(t *testing.T) {
		status, body := doRequest(t, app, http.MethodGet, "/api/v1/integrated-reports/"+uuid.NewString(), testSecret, "")
		assert.Equal(t, fiber.StatusNotFound, status)
		assert.Equal(t, "Report job not found", body["error"])
	})

	t.Run("malformed id", func(t *testing.T) {
		status, _ := doRequest(t, app, http.MethodGet, "/api/v1/integrated-reports/not-a-uuid", testSecret, "")
		assert.Equal(t, fiber.StatusBadRequest, status)
	})
}

func TestGetReportJobStoreError(t *testing.T) {
	jobs := newMemoryJobs()
	jobs.findErr = errors.New("connection reset")
	app := setupApp(jobs, &fakeWorker{})

	status, _ := doRequest(t, app, http.MethodGet, "/api/v1/integrated-reports/"+uuid.NewString(), testSecret, "")
	assert.Equal(t, fiber.StatusInternalServerError, status)
}
