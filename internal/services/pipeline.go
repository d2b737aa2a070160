package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/models"
)

type Stage string

const (
	StageInit                   Stage = "INIT"
	StageBuildingRecommendation Stage = "BUILDING_RECOMMENDATION_DOC"
	StageBuildingReferral       Stage = "BUILDING_REFERRAL_DOC"
	StageFetchingAttachments    Stage = "FETCHING_ATTACHMENTS"
	StageMerging                Stage = "MERGING"
	StageUploading              Stage = "UPLOADING"
	StageCompleted              Stage = "COMPLETED"
	StageFailed                 Stage = "FAILED"
)

const reportAuthor = "예이린 AI 시스템"

// ReportPipeline assembles one integrated report per request. It holds no
// per-request state and may run concurrently.
type ReportPipeline struct {
	recommendation DocumentProducer
	referral       DocumentProducer
	storage        StorageService
	merger         Merger
	inspector      PDFParserService
	accessTTL      time.Duration
	now            func() time.Time
	log            zerolog.Logger
}

type PipelineDeps struct {
	Recommendation DocumentProducer
	Referral       DocumentProducer
	Storage        StorageService
	Merger         Merger
	Inspector      PDFParserService
	AccessURLTTL   time.Duration
}

func NewReportPipeline(deps PipelineDeps, log zerolog.Logger) *ReportPipeline {
	ttl := deps.AccessURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReportPipeline{
		recommendation: deps.Recommendation,
		referral:       deps.Referral,
		storage:        deps.Storage,
		merger:         deps.Merger,
		inspector:      deps.Inspector,
		accessTTL:      ttl,
		now:            time.Now,
		log:            log.With().Str("component", "report_pipeline").Logger(),
	}
}

// Run never returns an error: every failure becomes a FAILED outcome carrying
// the causal message unchanged.
func (p *ReportPipeline) Run(ctx context.Context, req *models.ReportRequest) (outcome models.PipelineOutcome) {
	log := p.log.With().Str("request_id", req.CounselRequestID).Logger()
	started := p.now()
	current := StageInit

	defer func() {
		if r := recover(); r != nil {
			err := &StageError{Stage: current, Err: fmt.Errorf("panic: %v", r)}
			outcome = p.fail(log, req, err)
		}
	}()

	key, err := p.execute(ctx, req, &current, log)
	if err != nil {
		return p.fail(log, req, err)
	}

	log.Info().
		Str("stage", string(StageCompleted)).
		Str("artifact_key", key).
		Str("elapsed", formatDuration(p.now().Sub(started))).
		Msg("integrated report completed")
	return models.CompletedOutcome(req.CounselRequestID, key)
}

func (p *ReportPipeline) fail(log zerolog.Logger, req *models.ReportRequest, err error) models.PipelineOutcome {
	stage := StageFailed
	var se *StageError
	if errors.As(err, &se) {
		stage = se.Stage
	}
	log.Error().Err(err).Str("stage", string(stage)).Msg("integrated report failed")
	return models.FailedOutcome(req.CounselRequestID, string(stage), err.Error())
}

// execute runs the stages in order, recording the stage in progress in
// current so a panic can be attributed to it.
func (p *ReportPipeline) execute(ctx context.Context, req *models.ReportRequest, current *Stage, log zerolog.Logger) (string, error) {
	log.Info().
		Str("stage", string(StageInit)).
		Str("child_name", req.ChildName).
		Int("attachments", len(req.Attachments())).
		Bool("recommendation", req.NeedsRecommendationDocument()).
		Msg("integrated report started")

	var sections []models.DocumentStageResult

	if req.NeedsRecommendationDocument() {
		*current = StageBuildingRecommendation
		doc, err := p.produce(ctx, req, p.recommendation, StageBuildingRecommendation, log)
		if err != nil {
			return "", err
		}
		sections = append(sections, doc)
	}

	*current = StageBuildingReferral
	doc, err := p.produce(ctx, req, p.referral, StageBuildingReferral, log)
	if err != nil {
		return "", err
	}
	sections = append(sections, doc)

	*current = StageFetchingAttachments
	attachments, err := p.fetchAttachments(ctx, req, log)
	if err != nil {
		return "", &StageError{Stage: StageFetchingAttachments, Err: err}
	}
	sections = append(sections, attachments...)

	*current = StageMerging
	merged, err := p.merge(req, sections, log)
	if err != nil {
		return "", &StageError{Stage: StageMerging, Err: err}
	}

	*current = StageUploading
	filename := ArtifactFilename(req.ChildName, req.CounselRequestID, p.now())
	start := p.now()
	key, err := p.storage.Upload(ctx, merged, filename, ArtifactFolder)
	if err != nil {
		return "", &StageError{Stage: StageUploading, Err: err}
	}
	log.Info().
		Str("stage", string(StageUploading)).
		Str("filename", filename).
		Str("elapsed", formatDuration(p.now().Sub(start))).
		Msg("artifact uploaded")

	return key, nil
}

func (p *ReportPipeline) produce(
	ctx context.Context,
	req *models.ReportRequest,
	producer DocumentProducer,
	stage Stage,
	log zerolog.Logger,
) (models.DocumentStageResult, error) {
	start := p.now()
	data, err := producer.Produce(ctx, req)
	if err != nil {
		return models.DocumentStageResult{}, &StageError{Stage: stage, Err: err}
	}
	log.Info().
		Str("stage", string(stage)).
		Str("size", formatBytes(len(data))).
		Str("elapsed", formatDuration(p.now().Sub(start))).
		Msg("document built")
	return models.DocumentStageResult{Kind: producer.Kind(), Bytes: data}, nil
}

// fetchAttachments downloads every attachment that has a stored artifact, in
// declared order. Attachments without a key are skipped.
func (p *ReportPipeline) fetchAttachments(ctx context.Context, req *models.ReportRequest, log zerolog.Logger) ([]models.DocumentStageResult, error) {
	var out []models.DocumentStageResult
	for _, a := range req.Attachments() {
		if !a.HasArtifact() {
			log.Debug().Str("instrument", string(a.AssessmentType)).Msg("attachment has no artifact, skipped")
			continue
		}

		url, err := p.storage.ResolveAccessURL(ctx, a.ReportS3Key, p.accessTTL)
		if err != nil {
			return nil, err
		}
		data, err := p.storage.Download(ctx, url)
		if err != nil {
			return nil, err
		}

		log.Info().
			Str("stage", string(StageFetchingAttachments)).
			Str("instrument", string(a.AssessmentType)).
			Str("size", formatBytes(len(data))).
			Msg("attachment downloaded")
		out = append(out, models.DocumentStageResult{
			Kind:       models.KindAttachment,
			Instrument: a.AssessmentType,
			Bytes:      data,
		})
	}
	return out, nil
}

func (p *ReportPipeline) merge(req *models.ReportRequest, sections []models.DocumentStageResult, log zerolog.Logger) ([]byte, error) {
	docs := make([][]byte, len(sections))
	labels := make([]string, len(sections))
	pages := 0
	for i, s := range sections {
		n, err := p.inspector.PageCount(s.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Label(), err)
		}
		pages += n
		docs[i] = s.Bytes
		labels[i] = s.Label()
	}

	merged, err := p.merger.Merge(docs, ReportMetadata(req.ChildName, sections))
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("stage", string(StageMerging)).
		Strs("sections", labels).
		Int("pages", pages).
		Str("size", formatBytes(len(merged))).
		Msg("documents merged")
	return merged, nil
}

// ReportMetadata derives the title, author and subject of the merged artifact.
func ReportMetadata(childName string, sections []models.DocumentStageResult) PDFMetadata {
	var names []string
	for _, s := range sections {
		if s.Kind == models.KindAttachment {
			names = append(names, s.Instrument.DisplayName())
		}
	}
	subject := "상담의뢰지 통합 보고서"
	if len(names) > 0 {
		subject = fmt.Sprintf("상담의뢰지 및 %s 통합 보고서", strings.Join(names, ", "))
	}
	return PDFMetadata{
		Title:   "통합 보고서 - " + childName,
		Author:  reportAuthor,
		Subject: subject,
	}
}
