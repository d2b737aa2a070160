package models

// DocumentKind tags the bytes produced by one pipeline stage.
type DocumentKind string

const (
	KindRecommendation DocumentKind = "recommendation"
	KindReferral       DocumentKind = "referral"
	KindAttachment     DocumentKind = "attachment"
)

type DocumentStageResult struct {
	Kind       DocumentKind
	Instrument Instrument // set for attachments only
	Bytes      []byte
}

// Label names the section, e.g. "referral" or "attachment:SDQ_A".
func (d DocumentStageResult) Label() string {
	if d.Kind == KindAttachment {
		return string(d.Kind) + ":" + string(d.Instrument)
	}
	return string(d.Kind)
}

type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

// PipelineOutcome is terminal: either an artifact key or the first causal error.
type PipelineOutcome struct {
	CounselRequestID string        `json:"counsel_request_id"`
	Status           OutcomeStatus `json:"status"`
	ArtifactKey      *string       `json:"integrated_report_s3_key"`
	ErrorMessage     *string       `json:"error_message"`
	FailedStage      string        `json:"-"`
}

func CompletedOutcome(requestID, key string) PipelineOutcome {
	return PipelineOutcome{CounselRequestID: requestID, Status: OutcomeCompleted, ArtifactKey: &key}
}

func FailedOutcome(requestID, stage, message string) PipelineOutcome {
	return PipelineOutcome{CounselRequestID: requestID, Status: OutcomeFailed, ErrorMessage: &message, FailedStage: stage}
}

type AcceptedResponse struct {
	Status           string `json:"status"`
	JobID            string `json:"job_id"`
	CounselRequestID string `json:"counsel_request_id"`
	Message          string `json:"message"`
}

type JobStatusResponse struct {
	ID               string  `json:"id"`
	CounselRequestID string  `json:"counsel_request_id"`
	Status           string  `json:"status"`
	ArtifactKey      *string `json:"integrated_report_s3_key,omitempty"`
	ErrorMessage     *string `json:"error_message,omitempty"`
}
