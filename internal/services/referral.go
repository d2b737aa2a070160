package services

import (
	"fmt"
	"strconv"
	"strings"

	"alfredoptarigan/counsel-report/internal/docx"
	"alfredoptarigan/counsel-report/internal/eligibility"
	"alfredoptarigan/counsel-report/internal/models"
)

// ReferralLayout addresses the counsel request form template. Tables 0 to 3
// are the basic info, psychological, motivation and summary tables of the
// form; the protected status, instrument and eligibility tables follow them.
var ReferralLayout = docx.Layout{
	"cover.request":   docx.Paragraph("의뢰일자:"),
	"cover.counselor": docx.Paragraph("담당자:"),

	"child.name":   docx.Cell(0, 0, 1),
	"child.gender": docx.Cell(0, 0, 3),
	"child.age":    docx.Cell(0, 0, 5),
	"child.grade":  docx.Cell(0, 0, 7),

	"care.priority":      docx.Cell(0, 1, 1),
	"care.general":       docx.Cell(0, 2, 1),
	"care.special":       docx.Cell(0, 3, 1),
	"care.reasons.left":  docx.Cell(0, 1, 2),
	"care.reasons.right": docx.Cell(0, 1, 3),

	"psych.medical": docx.Cell(1, 0, 1),
	"psych.notes":   docx.Cell(1, 1, 1),

	"motivation.text":  docx.Cell(2, 0, 1),
	"motivation.goals": docx.Cell(2, 1, 1),

	"opinion.body": docx.Cell(3, 1, 0),

	"protected.facility":   docx.Cell(4, 0, 1),
	"protected.group_home": docx.Cell(4, 0, 2),
	"protected.reason":     docx.Cell(4, 1, 1),

	"kprc.body":         docx.Cell(5, 1, 0),
	"crtesr.body":       docx.Cell(6, 1, 0),
	"sdqa.strengths":    docx.Cell(7, 1, 0),
	"sdqa.difficulties": docx.Cell(7, 2, 0),

	"eligibility.yes":     docx.Cell(8, 0, 1),
	"eligibility.no":      docx.Cell(8, 0, 2),
	"eligibility.reasons": docx.Cell(8, 1, 1),

	"consent": docx.Paragraph(docx.Unchecked + " 동의"),
}

// Care types in template row order.
var careTypes = []string{"PRIORITY", "GENERAL", "SPECIAL"}

var PriorityReasonLabels = map[string]string{
	"BASIC_LIVELIHOOD":  "기초생활보장 수급권자",
	"LOW_INCOME":        "차상위계층 가구의 아동",
	"MEDICAL_AID":       "의료급여 수급권자",
	"DISABILITY":        "장애가구의 아동 또는 장애 아동",
	"MULTICULTURAL":     "다문화가족의 아동",
	"SINGLE_PARENT":     "한부모가족의 아동",
	"GRANDPARENT":       "조손가구의 아동",
	"EDUCATION_SUPPORT": "초･중･고 교육비 지원 대상 아동",
	"MULTI_CHILD":       "자녀가 2명 이상인 가구의 아동",
}

// Protected child types in template column order.
var protectedTypes = []string{"CHILD_FACILITY", "GROUP_HOME"}

var ProtectedReasonLabels = map[string]string{
	"GUARDIAN_ABSENCE": "보호자가 없거나 보호자로부터 이탈",
}

const (
	notAdministered = "해당 검사를 실시하지 않았습니다."
	summaryMissing  = "검사 결과 요약이 제공되지 않았습니다."
	none            = "없음"
)

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func referralPopulators() []populator {
	return []populator{
		{
			name:  "cover",
			slots: []string{"cover.request", "cover.counselor"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				cover := d.Request.CoverInfo
				w.set("cover.request", fmt.Sprintf("의뢰일자: %s 센터명: %s", cover.RequestDate.Korean(), cover.CenterName))
				w.set("cover.counselor", fmt.Sprintf("담당자: %s (서명)", cover.CounselorName))
			},
		},
		{
			name:  "child",
			slots: []string{"child.name", "child.gender", "child.age", "child.grade"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				child := d.Request.BasicInfo.ChildInfo
				w.set("child.name", child.Name)
				w.set("child.gender", child.GenderKorean())
				w.set("child.age", strconv.Itoa(child.Age))
				w.set("child.grade", child.Grade)
			},
		},
		{
			name:  "care_type",
			slots: []string{"care.priority", "care.general", "care.special", "care.reasons.left", "care.reasons.right"},
			fill:  fillCareType,
		},
		{
			name:  "protected_status",
			slots: []string{"protected.facility", "protected.group_home", "protected.reason"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				section := OptionalSection[models.ProtectedChildInfo]{
					Name:   "protected_status",
					Policy: SkipSection,
					Fill: func(p models.ProtectedChildInfo) {
						idx := indexOf(protectedTypes, p.Type)
						if idx < 0 {
							w.log.Warn().Str("type", p.Type).Msg("unknown protected child type")
						}
						w.filler.ToggleSingleSelect(w.group("protected.facility", "protected.group_home"), idx)
						if p.Reason != "" {
							w.filler.ToggleMultiSelect(w.group("protected.reason"), []string{p.Reason}, ProtectedReasonLabels)
						}
					},
				}
				section.Apply(d.Request.BasicInfo.ProtectedChildInfo)
			},
		},
		{
			name:  "psychological",
			slots: []string{"psych.medical", "psych.notes"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				psych := d.Request.PsychologicalInfo
				w.set("psych.medical", orDefault(psych.MedicalHistory, none))
				w.set("psych.notes", orDefault(psych.SpecialNotes, none))
			},
		},
		{
			name:  "motivation",
			slots: []string{"motivation.text", "motivation.goals"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.set("motivation.text", d.Request.RequestMotivation.Motivation)
				w.set("motivation.goals", d.Request.RequestMotivation.Goals)
			},
		},
		{
			name:  "kprc",
			slots: []string{"kprc.body"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.set("kprc.body", kprcBlock(d))
			},
		},
		{
			name:  "crtes_r",
			slots: []string{"crtesr.body"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.set("crtesr.body", crtesrBlock(d))
			},
		},
		{
			name:  "sdq_a",
			slots: []string{"sdqa.strengths", "sdqa.difficulties"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				strengths, difficulties := sdqaBlocks(d)
				w.set("sdqa.strengths", strengths)
				w.set("sdqa.difficulties", difficulties)
			},
		},
		{
			name:  "eligibility",
			slots: []string{"eligibility.yes", "eligibility.no", "eligibility.reasons"},
			fill:  fillEligibility,
		},
		{
			name:  "integrated_opinion",
			slots: []string{"opinion.body"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.set("opinion.body", integratedOpinion(d.Request))
			},
		},
		{
			name:  "consent",
			slots: []string{"consent"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.filler.ReplaceText(w.slots.Get("consent"), docx.Unchecked+" 동의", docx.Checked+" 동의")
			},
		},
	}
}

func fillCareType(w *sectionWriter, d *ProducerInput) {
	basic := d.Request.BasicInfo
	idx := indexOf(careTypes, basic.CareType)
	if idx < 0 {
		w.log.Warn().Str("care_type", basic.CareType).Msg("unknown care type, nothing checked")
	}
	w.filler.ToggleSingleSelect(w.group("care.priority", "care.general", "care.special"), idx)

	if basic.CareType == "PRIORITY" && len(basic.PriorityReasons) > 0 {
		w.filler.ToggleMultiSelect(
			w.group("care.reasons.left", "care.reasons.right"),
			basic.PriorityReasons,
			PriorityReasonLabels,
		)
	}
}

func summaryOf(req *models.ReportRequest, instrument models.Instrument) (*models.AssessmentSummary, bool) {
	if _, ok := req.Attachment(instrument); !ok {
		return nil, false
	}
	return req.Summary(instrument), true
}

func bullets(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, "• "+l)
		}
	}
	return out
}

func kprcBlock(d *ProducerInput) string {
	summary, ok := summaryOf(d.Request, models.InstrumentKPRC)
	if !ok {
		return notAdministered
	}
	if summary == nil || len(summary.SummaryLines) == 0 {
		return summaryMissing
	}
	return strings.Join(bullets(summary.SummaryLines), "\n")
}

func crtesrBlock(d *ProducerInput) string {
	attachment, ok := d.Request.Attachment(models.InstrumentCRTESR)
	if !ok {
		return notAdministered
	}

	var parts []string
	if s := d.Request.Summary(models.InstrumentCRTESR); s != nil {
		parts = append(parts, bullets(s.SummaryLines)...)
	}
	set := models.NewScoreSet(models.InstrumentCRTESR, attachment.Scores)
	if total, ok := set.Score(eligibility.ScaleTotal); ok {
		parts = append(parts, fmt.Sprintf("외상 반응 수준: %s (총점 %s)",
			eligibility.CRTESRSeverity(total).Korean(),
			strconv.FormatFloat(total, 'f', -1, 64)))
	}
	if len(parts) == 0 {
		return summaryMissing
	}
	return strings.Join(parts, "\n")
}

// sdqaBlocks splits the summary: the first three lines describe strengths,
// the next three difficulties.
func sdqaBlocks(d *ProducerInput) (string, string) {
	summary, ok := summaryOf(d.Request, models.InstrumentSDQA)
	if !ok {
		return notAdministered, notAdministered
	}
	if summary == nil || len(summary.SummaryLines) == 0 {
		return summaryMissing, summaryMissing
	}

	lines := summary.SummaryLines
	strengths := lines[:min(3, len(lines))]
	var difficulties []string
	if len(lines) > 3 {
		difficulties = lines[3:min(6, len(lines))]
	}

	s := strings.Join(bullets(strengths), "\n")
	df := strings.Join(bullets(difficulties), "\n")
	if df == "" {
		df = summaryMissing
	}
	return s, df
}

func fillEligibility(w *sectionWriter, d *ProducerInput) {
	e := d.Eligibility
	choices := w.group("eligibility.yes", "eligibility.no")

	switch {
	case e.Eligible:
		w.filler.ToggleSingleSelect(choices, 0)
	case len(e.Evaluated) > 0:
		w.filler.ToggleSingleSelect(choices, 1)
	default:
		w.filler.ToggleSingleSelect(choices, -1)
	}
	w.set("eligibility.reasons", eligibilityReasons(e))
}

func eligibilityReasons(e models.CombinedEligibility) string {
	var lines []string
	for _, instrument := range models.CanonicalInstruments {
		detail, ok := e.Detail(instrument)
		if !ok {
			continue
		}
		switch detail.Status {
		case models.StatusTriggered:
			lines = append(lines, fmt.Sprintf("[%s] %s", instrument.DisplayName(), strings.Join(detail.Reasons, ", ")))
		case models.StatusNotTriggered:
			lines = append(lines, fmt.Sprintf("[%s] 기준 해당 없음", instrument.DisplayName()))
		case models.StatusNotComputed:
			lines = append(lines, fmt.Sprintf("[%s] 점수 없음 (판정 제외)", instrument.DisplayName()))
		}
	}
	if len(lines) == 0 {
		return "판정에 사용할 검사 점수가 없습니다."
	}
	return strings.Join(lines, "\n")
}

// integratedOpinion concatenates every attached instrument's expert opinion
// in canonical order.
func integratedOpinion(req *models.ReportRequest) string {
	var parts []string
	for _, instrument := range models.CanonicalInstruments {
		s, ok := summaryOf(req, instrument)
		if !ok || s == nil || strings.TrimSpace(s.ExpertOpinion) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", instrument.DisplayName(), s.ExpertOpinion))
	}
	return strings.Join(parts, "\n\n")
}
