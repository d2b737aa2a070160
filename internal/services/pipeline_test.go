package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/counsel-report/internal/models"
)

type pipelineFixture struct {
	recommendation *fakeProducer
	referral       *fakeProducer
	storage        *fakeStorage
	merger         *fakeMerger
	inspector      *fakeInspector
	pipeline       *ReportPipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		recommendation: &fakeProducer{kind: models.KindRecommendation},
		referral:       &fakeProducer{kind: models.KindReferral},
		storage:        &fakeStorage{},
		merger:         &fakeMerger{},
		inspector:      &fakeInspector{},
	}
	f.pipeline = NewReportPipeline(PipelineDeps{
		Recommendation: f.recommendation,
		Referral:       f.referral,
		Storage:        f.storage,
		Merger:         f.merger,
		Inspector:      f.inspector,
		AccessURLTTL:   time.Hour,
	}, zerolog.Nop())
	f.pipeline.now = func() time.Time { return time.Date(2025, 1, 15, 9, 30, 5, 0, time.UTC) }
	return f
}

func attachmentsOf(keys ...string) []models.Attachment {
	types := []models.Instrument{models.InstrumentKPRC, models.InstrumentSDQA, models.InstrumentCRTESR}
	out := make([]models.Attachment, len(keys))
	for i, k := range keys {
		out[i] = models.Attachment{AssessmentType: types[i%len(types)], ReportS3Key: k}
	}
	return out
}

func TestPipelineMergeOrder(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want []string
	}{
		{
			name: "declared order",
			keys: []string{"X", "Y"},
			want: []string{"recommendation", "referral", "attachment:X", "attachment:Y"},
		},
		{
			name: "reversed declared order",
			keys: []string{"Y", "X"},
			want: []string{"recommendation", "referral", "attachment:Y", "attachment:X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			req := sampleRequest()
			req.AttachedAssessments = attachmentsOf(tt.keys...)

			outcome := f.pipeline.Run(context.Background(), req)

			require.Equal(t, models.OutcomeCompleted, outcome.Status)
			assert.Equal(t, tt.want, f.merger.docs)
			assert.Equal(t, tt.keys, f.storage.resolved)
		})
	}
}

func TestPipelineSkipsRecommendationWithoutGuardianOrInstitution(t *testing.T) {
	f := newPipelineFixture()
	req := sampleRequest()
	req.GuardianInfo = nil
	req.InstitutionInfo = nil
	req.AttachedAssessments = attachmentsOf("X")

	outcome := f.pipeline.Run(context.Background(), req)

	require.Equal(t, models.OutcomeCompleted, outcome.Status)
	assert.Zero(t, f.recommendation.calls)
	assert.Equal(t, []string{"referral", "attachment:X"}, f.merger.docs)
}

func TestPipelineBuildsRecommendationForInstitutionOnly(t *testing.T) {
	f := newPipelineFixture()
	req := sampleRequest()
	req.GuardianInfo = nil
	req.InstitutionInfo = &models.InstitutionInfo{InstitutionName: "행복센터"}

	outcome := f.pipeline.Run(context.Background(), req)

	require.Equal(t, models.OutcomeCompleted, outcome.Status)
	assert.Equal(t, 1, f.recommendation.calls)
	assert.Equal(t, "recommendation", f.merger.docs[0])
}

func TestPipelineSkipsAttachmentsWithoutKeyKeepingOrder(t *testing.T) {
	f := newPipelineFixture()
	req := sampleRequest()
	req.AttachedAssessments = []models.Attachment{
		{AssessmentType: models.InstrumentSDQA, ReportS3Key: "B"},
		{AssessmentType: models.InstrumentCRTESR},
		{AssessmentType: models.InstrumentKPRC, ReportS3Key: "A"},
	}

	outcome := f.pipeline.Run(context.Background(), req)

	require.Equal(t, models.OutcomeCompleted, outcome.Status)
	assert.Equal(t, []string{"recommendation", "referral", "attachment:B", "attachment:A"}, f.merger.docs)
	assert.Equal(t, []time.Duration{time.Hour, time.Hour}, f.storage.ttls)
}

func TestPipelineLegacyAttachmentKey(t *testing.T) {
	f := newPipelineFixture()
	req := sampleRequest()
	req.AttachedAssessments = nil
	req.AssessmentReportS3Key = "legacy/kprc.pdf"

	outcome := f.pipeline.Run(context.Background(), req)

	require.Equal(t, models.OutcomeCompleted, outcome.Status)
	assert.Equal(t, []string{"recommendation", "referral", "attachment:legacy/kprc.pdf"}, f.merger.docs)
}

func TestPipelineFetchFailureStopsBeforeMerge(t *testing.T) {
	f := newPipelineFixture()
	f.storage.downloadErr = errors.New("download failed: connection reset by peer")
	req := sampleRequest()

	outcome := f.pipeline.Run(context.Background(), req)

	assert.Equal(t, models.OutcomeFailed, outcome.Status)
	require.NotNil(t, outcome.ErrorMessage)
	assert.Equal(t, "download failed: connection reset by peer", *outcome.ErrorMessage)
	assert.Equal(t, string(StageFetchingAttachments), outcome.FailedStage)
	assert.Nil(t, outcome.ArtifactKey)
	assert.Zero(t, f.merger.calls)
	assert.Zero(t, f.storage.uploads)
}

func TestPipelineFailureStages(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *pipelineFixture)
		stage Stage
		msg   string
	}{
		{
			name:  "recommendation",
			setup: func(f *pipelineFixture) { f.recommendation.err = errors.New("template broken") },
			stage: StageBuildingRecommendation,
			msg:   "template broken",
		},
		{
			name:  "referral",
			setup: func(f *pipelineFixture) { f.referral.err = errors.New("convert document: unexpected status 503") },
			stage: StageBuildingReferral,
			msg:   "convert document: unexpected status 503",
		},
		{
			name:  "resolve",
			setup: func(f *pipelineFixture) { f.storage.resolveErr = errors.New("resolve access url failed") },
			stage: StageFetchingAttachments,
			msg:   "resolve access url failed",
		},
		{
			name:  "unreadable pdf",
			setup: func(f *pipelineFixture) { f.inspector.err = errors.New("PDF has no pages") },
			stage: StageMerging,
			msg:   "recommendation: PDF has no pages",
		},
		{
			name:  "merge",
			setup: func(f *pipelineFixture) { f.merger.err = errors.New("failed to merge PDFs") },
			stage: StageMerging,
			msg:   "failed to merge PDFs",
		},
		{
			name:  "upload",
			setup: func(f *pipelineFixture) { f.storage.uploadErr = errors.New("upload: unexpected status 500") },
			stage: StageUploading,
			msg:   "upload: unexpected status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			tt.setup(f)

			outcome := f.pipeline.Run(context.Background(), sampleRequest())

			assert.Equal(t, models.OutcomeFailed, outcome.Status)
			assert.Equal(t, string(tt.stage), outcome.FailedStage)
			require.NotNil(t, outcome.ErrorMessage)
			assert.Equal(t, tt.msg, *outcome.ErrorMessage)
		})
	}
}

func TestPipelineRecommendationFailureSkipsReferral(t *testing.T) {
	f := newPipelineFixture()
	f.recommendation.err = errors.New("boom")

	f.pipeline.Run(context.Background(), sampleRequest())

	assert.Zero(t, f.referral.calls)
	assert.Empty(t, f.storage.resolved)
}

func TestPipelineUploadsUnderArtifactName(t *testing.T) {
	f := newPipelineFixture()
	req := sampleRequest()

	outcome := f.pipeline.Run(context.Background(), req)

	require.Equal(t, models.OutcomeCompleted, outcome.Status)
	assert.Equal(t, "IR_김민수_5f1c9a2e_20250115_093005.pdf", f.storage.uploadName)
	assert.Equal(t, ArtifactFolder, f.storage.uploadFolder)
	require.NotNil(t, outcome.ArtifactKey)
	assert.Equal(t, "integrated-reports/IR_김민수_5f1c9a2e_20250115_093005.pdf", *outcome.ArtifactKey)
	assert.Nil(t, outcome.ErrorMessage)
	assert.Equal(t, req.CounselRequestID, outcome.CounselRequestID)
}

func TestPipelineMetadata(t *testing.T) {
	f := newPipelineFixture()

	f.pipeline.Run(context.Background(), sampleRequest())

	assert.Equal(t, "통합 보고서 - 김민수", f.merger.meta.Title)
	assert.Equal(t, "예이린 AI 시스템", f.merger.meta.Author)
	assert.Equal(t, "상담의뢰지 및 KPRC 인성평정척도, 강점·난점 설문지 (SDQ-A) 통합 보고서", f.merger.meta.Subject)
}

func TestReportMetadataWithoutAttachments(t *testing.T) {
	meta := ReportMetadata("이영희", []models.DocumentStageResult{{Kind: models.KindReferral}})
	assert.Equal(t, "상담의뢰지 통합 보고서", meta.Subject)
}

type panickingProducer struct{ fakeProducer }

func (p *panickingProducer) Produce(context.Context, *models.ReportRequest) ([]byte, error) {
	panic("nil template")
}

func TestPipelineRecoversPanics(t *testing.T) {
	tests := []struct {
		name      string
		install   func(f *pipelineFixture)
		wantStage Stage
	}{
		{
			name: "recommendation",
			install: func(f *pipelineFixture) {
				f.pipeline.recommendation = &panickingProducer{fakeProducer{kind: models.KindRecommendation}}
			},
			wantStage: StageBuildingRecommendation,
		},
		{
			name: "referral",
			install: func(f *pipelineFixture) {
				f.pipeline.referral = &panickingProducer{fakeProducer{kind: models.KindReferral}}
			},
			wantStage: StageBuildingReferral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			tt.install(f)

			outcome := f.pipeline.Run(context.Background(), sampleRequest())

			assert.Equal(t, models.OutcomeFailed, outcome.Status)
			require.NotNil(t, outcome.ErrorMessage)
			assert.Equal(t, "panic: nil template", *outcome.ErrorMessage)
			assert.Equal(t, string(tt.wantStage), outcome.FailedStage)
			assert.Zero(t, f.storage.uploads)
		})
	}
}

func TestStageErrorKeepsMessage(t *testing.T) {
	cause := errors.New("root cause")
	err := &StageError{Stage: StageMerging, Err: cause}

	assert.Equal(t, "root cause", err.Error())
	assert.ErrorIs(t, err, cause)
}
