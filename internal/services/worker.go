package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/models"
	"alfredoptarigan/counsel-report/internal/repositories"
)

var (
	ErrQueueFull     = errors.New("report queue is full")
	ErrWorkerStopped = errors.New("worker is stopped")
)

const (
	shutdownMessage    = "service shut down before the report was processed"
	interruptedMessage = "interrupted by service restart"
)

// ReportRunner is satisfied by *ReportPipeline.
type ReportRunner interface {
	Run(ctx context.Context, req *models.ReportRequest) models.PipelineOutcome
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(jobID uuid.UUID, req *models.ReportRequest) error
}

type reportJob struct {
	id  uuid.UUID
	req *models.ReportRequest
}

type worker struct {
	jobs        repositories.ReportJobRepository
	pipeline    ReportRunner
	notifier    Notifier
	jobQueue    chan reportJob
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	// mu orders Enqueue against Stop so nothing lands in the queue after it
	// was drained.
	mu      sync.RWMutex
	stopped bool
	log         zerolog.Logger
}

func NewWorker(
	jobs repositories.ReportJobRepository,
	pipeline ReportRunner,
	notifier Notifier,
	concurrency int,
	queueSize int,
	log zerolog.Logger,
) Worker {
	return &worker{
		jobs:        jobs,
		pipeline:    pipeline,
		notifier:    notifier,
		jobQueue:    make(chan reportJob, queueSize),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
		log:         log.With().Str("component", "worker").Logger(),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info().Int("concurrency", w.concurrency).Int("queue_size", cap(w.jobQueue)).Msg("starting worker")

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}
}

// Stop implements Worker. In-flight jobs finish; jobs still queued are
// failed and signalled so every accepted request gets one completion signal.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info().Msg("stopping worker")
		w.mu.Lock()
		w.stopped = true
		close(w.stopChan)
		w.mu.Unlock()

		w.wg.Wait()
		w.drain()
	})
	w.wg.Wait()
	w.log.Info().Msg("worker stopped")
}

func (w *worker) drain() {
	for {
		select {
		case job := <-w.jobQueue:
			w.abandon(job)
		default:
			return
		}
	}
}

func (w *worker) abandon(job reportJob) {
	log := w.log.With().Str("job_id", job.id.String()).Str("request_id", job.req.CounselRequestID).Logger()
	log.Warn().Msg("queued job abandoned at shutdown")

	if err := w.jobs.MarkFailed(job.id, string(StageInit), shutdownMessage); err != nil {
		log.Warn().Err(err).Msg("failed to record abandoned job")
	}
	w.notifier.Notify(context.Background(), models.FailedOutcome(job.req.CounselRequestID, string(StageInit), shutdownMessage))
}

// Enqueue implements Worker. It never blocks.
func (w *worker) Enqueue(jobID uuid.UUID, req *models.ReportRequest) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrWorkerStopped
	}

	select {
	case w.jobQueue <- reportJob{id: jobID, req: req}:
		w.log.Debug().Str("job_id", jobID.String()).Str("request_id", req.CounselRequestID).Msg("job enqueued")
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log := w.log.With().Int("worker", workerID).Logger()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case job := <-w.jobQueue:
			w.process(ctx, job, log)
		}
	}
}

func (w *worker) process(ctx context.Context, job reportJob, log zerolog.Logger) {
	log = log.With().Str("job_id", job.id.String()).Str("request_id", job.req.CounselRequestID).Logger()

	if err := w.jobs.MarkProcessing(job.id); err != nil {
		log.Warn().Err(err).Msg("failed to mark job processing")
	}

	outcome := w.pipeline.Run(ctx, job.req)

	switch outcome.Status {
	case models.OutcomeCompleted:
		if err := w.jobs.MarkCompleted(job.id, *outcome.ArtifactKey); err != nil {
			log.Warn().Err(err).Msg("failed to record completed job")
		}
	default:
		if err := w.jobs.MarkFailed(job.id, outcome.FailedStage, *outcome.ErrorMessage); err != nil {
			log.Warn().Err(err).Msg("failed to record failed job")
		}
	}

	w.notifier.Notify(ctx, outcome)
}

// RecoverInterrupted closes jobs a previous process left open and sends the
// completion signal they never got. It returns how many were closed.
func RecoverInterrupted(ctx context.Context, jobs repositories.ReportJobRepository, notifier Notifier, log zerolog.Logger) (int, error) {
	closed, err := jobs.FailInterrupted(interruptedMessage)
	if err != nil {
		return 0, err
	}
	for _, job := range closed {
		log.Warn().Str("job_id", job.ID.String()).Str("request_id", job.CounselRequestID).Msg("interrupted job closed")
		notifier.Notify(ctx, models.FailedOutcome(job.CounselRequestID, string(StageInit), interruptedMessage))
	}
	return len(closed), nil
}
