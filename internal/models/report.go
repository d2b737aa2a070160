package models

import (
	"fmt"
	"strings"
)

type RequestDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Korean renders the date as "2025년 1월 15일".
func (d RequestDate) Korean() string {
	return fmt.Sprintf("%d년 %d월 %d일", d.Year, d.Month, d.Day)
}

func (d RequestDate) Valid() bool {
	return d.Year > 0 && d.Month >= 1 && d.Month <= 12 && d.Day >= 1 && d.Day <= 31
}

type CoverInfo struct {
	RequestDate   RequestDate `json:"requestDate"`
	CenterName    string      `json:"centerName"`
	CounselorName string      `json:"counselorName"`
}

type ChildInfo struct {
	Name      string       `json:"name"`
	Gender    string       `json:"gender"`
	Age       int          `json:"age"`
	Grade     string       `json:"grade"`
	BirthDate *RequestDate `json:"birthDate,omitempty"`
}

// GenderKorean maps MALE/FEMALE codes to the labels printed on forms.
func (c ChildInfo) GenderKorean() string {
	switch strings.ToUpper(c.Gender) {
	case "MALE", "M":
		return "남"
	case "FEMALE", "F":
		return "여"
	default:
		return c.Gender
	}
}

type ProtectedChildInfo struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type BasicInfo struct {
	ChildInfo          ChildInfo           `json:"childInfo"`
	CareType           string              `json:"careType"`
	PriorityReasons    []string            `json:"priorityReasons,omitempty"`
	ProtectedChildInfo *ProtectedChildInfo `json:"protectedChildInfo,omitempty"`
}

type PsychologicalInfo struct {
	MedicalHistory string `json:"medicalHistory"`
	SpecialNotes   string `json:"specialNotes"`
}

type RequestMotivation struct {
	Motivation string `json:"motivation"`
	Goals      string `json:"goals"`
}

type GuardianInfo struct {
	Name            string `json:"name"`
	PhoneNumber     string `json:"phoneNumber"`
	HomePhone       string `json:"homePhone,omitempty"`
	Address         string `json:"address"`
	AddressDetail   string `json:"addressDetail,omitempty"`
	RelationToChild string `json:"relationToChild"`
}

func (g GuardianInfo) FullAddress() string {
	return joinNonEmpty(" ", g.Address, g.AddressDetail)
}

// Phones renders "home/mobile"; empty when both are missing.
func (g GuardianInfo) Phones() string {
	if g.HomePhone == "" && g.PhoneNumber == "" {
		return ""
	}
	return g.HomePhone + "/" + g.PhoneNumber
}

type InstitutionInfo struct {
	InstitutionName string `json:"institutionName"`
	PhoneNumber     string `json:"phoneNumber"`
	Address         string `json:"address"`
	AddressDetail   string `json:"addressDetail,omitempty"`
	WriterPosition  string `json:"writerPosition"`
	WriterName      string `json:"writerName"`
	RelationToChild string `json:"relationToChild"`
}

func (i InstitutionInfo) FullAddress() string {
	return joinNonEmpty(" ", i.Address, i.AddressDetail)
}

// AssessmentSummary is the narrative produced upstream for one instrument.
type AssessmentSummary struct {
	SummaryLines    []string `json:"summaryLines,omitempty"`
	ExpertOpinion   string   `json:"expertOpinion,omitempty"`
	KeyFindings     []string `json:"keyFindings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Attachment references one instrument result. ReportS3Key is empty for
// instruments that never produce a standalone report artifact.
type Attachment struct {
	AssessmentType Instrument          `json:"assessmentType"`
	AssessmentName string              `json:"assessmentName,omitempty"`
	ReportS3Key    string              `json:"reportS3Key,omitempty"`
	ResultID       string              `json:"resultId,omitempty"`
	Scores         map[string]*float64 `json:"scores,omitempty"`
	Summary        *AssessmentSummary  `json:"summary,omitempty"`
}

func (a Attachment) HasArtifact() bool {
	return strings.TrimSpace(a.ReportS3Key) != ""
}

// ReportRequest is the payload the referral backend submits for one report.
type ReportRequest struct {
	CounselRequestID  string            `json:"counsel_request_id"`
	ChildID           string            `json:"child_id"`
	ChildName         string            `json:"child_name"`
	CoverInfo         CoverInfo         `json:"cover_info"`
	BasicInfo         BasicInfo         `json:"basic_info"`
	PsychologicalInfo PsychologicalInfo `json:"psychological_info"`
	RequestMotivation RequestMotivation `json:"request_motivation"`

	AttachedAssessments []Attachment `json:"attached_assessments,omitempty"`

	// Deprecated: use AttachedAssessments.
	AssessmentReportS3Key string `json:"assessment_report_s3_key,omitempty"`
	// Deprecated: use AttachedAssessments.
	KprcSummary *AssessmentSummary `json:"kprc_summary,omitempty"`

	GuardianInfo    *GuardianInfo    `json:"guardian_info,omitempty"`
	InstitutionInfo *InstitutionInfo `json:"institution_info,omitempty"`
}

// Attachments returns the declared attachments, falling back to the legacy
// single KPRC key when the list is empty.
func (r *ReportRequest) Attachments() []Attachment {
	if len(r.AttachedAssessments) > 0 {
		return r.AttachedAssessments
	}
	if r.AssessmentReportS3Key != "" {
		return []Attachment{{
			AssessmentType: InstrumentKPRC,
			AssessmentName: InstrumentKPRC.DisplayName(),
			ReportS3Key:    r.AssessmentReportS3Key,
			Summary:        r.KprcSummary,
		}}
	}
	return nil
}

// Attachment returns the first attachment of the given instrument.
func (r *ReportRequest) Attachment(instrument Instrument) (Attachment, bool) {
	for _, a := range r.Attachments() {
		if a.AssessmentType == instrument {
			return a, true
		}
	}
	return Attachment{}, false
}

// Summary returns the narrative summary of an instrument, honoring the
// legacy KPRC field.
func (r *ReportRequest) Summary(instrument Instrument) *AssessmentSummary {
	if a, ok := r.Attachment(instrument); ok && a.Summary != nil {
		return a.Summary
	}
	if instrument == InstrumentKPRC {
		return r.KprcSummary
	}
	return nil
}

// ScoreSets builds one score set per attachment that carries scores.
func (r *ReportRequest) ScoreSets() []AssessmentScoreSet {
	var sets []AssessmentScoreSet
	for _, a := range r.Attachments() {
		if a.Scores == nil {
			continue
		}
		sets = append(sets, NewScoreSet(a.AssessmentType, a.Scores))
	}
	return sets
}

// NeedsRecommendationDocument is true iff guardian or institution info is present.
func (r *ReportRequest) NeedsRecommendationDocument() bool {
	return r.GuardianInfo != nil || r.InstitutionInfo != nil
}

// Validate checks the fields the pipeline cannot work without.
func (r *ReportRequest) Validate() error {
	if strings.TrimSpace(r.CounselRequestID) == "" {
		return fmt.Errorf("counsel_request_id is required")
	}
	if strings.TrimSpace(r.ChildName) == "" {
		return fmt.Errorf("child_name is required")
	}
	if !r.CoverInfo.RequestDate.Valid() {
		return fmt.Errorf("cover_info.requestDate is invalid")
	}
	if len(r.AttachedAssessments) > len(CanonicalInstruments) {
		return fmt.Errorf("at most %d attached assessments are allowed", len(CanonicalInstruments))
	}
	for i, a := range r.AttachedAssessments {
		if !a.AssessmentType.Valid() {
			return fmt.Errorf("attached_assessments[%d]: unknown assessmentType %q", i, a.AssessmentType)
		}
	}
	return nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
