package services

import (
	"strings"

	"alfredoptarigan/counsel-report/internal/docx"
	"alfredoptarigan/counsel-report/internal/models"
)

// RecommendationLayout addresses the social service recommendation form.
var RecommendationLayout = docx.Layout{
	"subject.name":    docx.Cell(0, 1, 0),
	"subject.birth":   docx.Cell(0, 1, 1),
	"subject.address": docx.Cell(0, 1, 2),

	"guardian.name":     docx.Cell(0, 3, 0),
	"guardian.relation": docx.Cell(0, 3, 1),
	"guardian.phone":    docx.Cell(0, 3, 2),

	"reason.motivation": docx.Cell(1, 0, 1),
	"reason.basis":      docx.Cell(1, 1, 1),
	"reason.opinion":    docx.Cell(1, 2, 1),

	"writer.institution": docx.Cell(2, 0, 1),
	"writer.phone":       docx.Cell(2, 0, 4),
	"writer.address":     docx.Cell(2, 1, 1),
	"writer.position":    docx.Cell(2, 2, 1),
	"writer.name":        docx.Cell(2, 2, 3),
	"writer.relation":    docx.Cell(2, 3, 0),

	"issue.date": docx.Paragraph("20   .", "20  ."),
	"issuer":     docx.Paragraph("발  급  처", "발 급 처"),
}

func recommendationPopulators() []populator {
	return []populator{
		{
			name:  "subject",
			slots: []string{"subject.name", "subject.birth"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				child := d.Request.BasicInfo.ChildInfo
				w.set("subject.name", child.Name)
				birth := ""
				if child.BirthDate != nil {
					birth = child.BirthDate.Korean()
				}
				w.set("subject.birth", birth)
			},
		},
		{
			name:  "guardian",
			slots: []string{"subject.address", "guardian.name", "guardian.relation", "guardian.phone"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				section := OptionalSection[models.GuardianInfo]{
					Name:   "guardian",
					Policy: RenderBlank,
					Fill: func(g models.GuardianInfo) {
						w.set("subject.address", g.FullAddress())
						w.set("guardian.name", g.Name)
						w.set("guardian.relation", g.RelationToChild)
						w.set("guardian.phone", g.Phones())
					},
				}
				section.Apply(d.Request.GuardianInfo)
			},
		},
		{
			name:  "recommendation_reason",
			slots: []string{"reason.motivation", "reason.basis", "reason.opinion"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.set("reason.motivation", d.Request.RequestMotivation.Motivation)
				w.set("reason.basis", judgmentBasis(d.Request))
				w.set("reason.opinion", recommenderOpinionText(d.Opinion))
			},
		},
		{
			name: "writer",
			slots: []string{
				"writer.institution", "writer.phone", "writer.address",
				"writer.position", "writer.name", "writer.relation",
			},
			fill: func(w *sectionWriter, d *ProducerInput) {
				cover := d.Request.CoverInfo
				section := OptionalSection[models.InstitutionInfo]{
					Name:   "writer",
					Policy: RenderBlank,
					Fill: func(i models.InstitutionInfo) {
						w.set("writer.institution", orDefault(i.InstitutionName, cover.CenterName))
						w.set("writer.phone", i.PhoneNumber)
						w.set("writer.address", i.FullAddress())
						w.set("writer.position", i.WriterPosition)
						w.set("writer.name", orDefault(i.WriterName, cover.CounselorName))
						w.set("writer.relation", "이용자와의 관계: "+i.RelationToChild)
					},
				}
				section.Apply(d.Request.InstitutionInfo)
			},
		},
		{
			name:  "issue_date",
			slots: []string{"issue.date"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.set("issue.date", d.Request.CoverInfo.RequestDate.Korean())
			},
		},
		{
			name:  "issuer",
			slots: []string{"issuer"},
			fill: func(w *sectionWriter, d *ProducerInput) {
				w.set("issuer", "발  급  처: "+issuerName(d.Request))
			},
		},
	}
}

func issuerName(req *models.ReportRequest) string {
	if req.InstitutionInfo != nil && req.InstitutionInfo.InstitutionName != "" {
		return req.InstitutionInfo.InstitutionName
	}
	return req.CoverInfo.CenterName
}

// judgmentBasis lists assessment opinions, observations and medical history.
// A medical history of "없음" is omitted.
func judgmentBasis(req *models.ReportRequest) string {
	var parts []string
	if opinion := integratedOpinion(req); opinion != "" {
		parts = append(parts, "[심리검사 결과]\n"+opinion)
	}
	psych := req.PsychologicalInfo
	if strings.TrimSpace(psych.SpecialNotes) != "" {
		parts = append(parts, "[관찰내용]\n"+psych.SpecialNotes)
	}
	if h := strings.TrimSpace(psych.MedicalHistory); h != "" && h != none {
		parts = append(parts, "[기존 병력]\n"+psych.MedicalHistory)
	}
	return strings.Join(parts, "\n\n")
}

func recommenderOpinionText(o *RecommenderOpinion) string {
	if o == nil {
		return ""
	}
	text := o.Text
	if needs := bullets(o.ServiceNeeds); len(needs) > 0 {
		text += "\n\n[서비스 지원이 필요한 분야]\n" + strings.Join(needs, "\n")
	}
	return text
}
