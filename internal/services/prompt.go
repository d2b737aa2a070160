package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/counsel-report/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

const recommenderSystemPrompt = `당신은 아동·청소년 심리상담 전문가입니다.
상담의뢰지와 심리검사 요약을 바탕으로 사회서비스 이용 추천서의
'추천자 의견' 란에 들어갈 전문가 소견을 작성합니다.

작성 원칙:
1. 공식 문서에 적합한 전문적인 어조
2. 제공된 자료에 근거한 객관적 서술
3. 아동의 강점과 성장 가능성을 함께 언급
4. 필요한 서비스 분야를 구체적으로 제시
5. 특정 진단명이나 장애명은 언급하지 않음`

// BuildRecommenderOpinionPrompt creates the prompt for the recommender
// opinion of the recommendation document.
func (pb *PromptBuilder) BuildRecommenderOpinionPrompt(req *models.ReportRequest) string {
	child := req.BasicInfo.ChildInfo

	desc := []string{"이름: " + req.ChildName}
	if child.Age > 0 {
		desc = append(desc, fmt.Sprintf("나이: %d세", child.Age))
	}
	if g := child.GenderKorean(); g != "" {
		desc = append(desc, "성별: "+g)
	}

	var sb strings.Builder
	sb.WriteString(recommenderSystemPrompt)
	sb.WriteString("\n\n## 아동 정보:\n")
	sb.WriteString(strings.Join(desc, " | "))

	if m := strings.TrimSpace(req.RequestMotivation.Motivation); m != "" {
		sb.WriteString("\n\n## 의뢰 동기:\n" + m)
	}
	if g := strings.TrimSpace(req.RequestMotivation.Goals); g != "" {
		sb.WriteString("\n\n## 상담 목표:\n" + g)
	}
	if n := strings.TrimSpace(req.PsychologicalInfo.SpecialNotes); n != "" {
		sb.WriteString("\n\n## 관찰 내용:\n" + n)
	}

	for _, instrument := range models.CanonicalInstruments {
		s, ok := summaryOf(req, instrument)
		if !ok || s == nil {
			continue
		}
		fmt.Fprintf(&sb, "\n\n## %s 결과:\n", instrument.DisplayName())
		if s.ExpertOpinion != "" {
			sb.WriteString(s.ExpertOpinion + "\n")
		}
		for _, line := range s.SummaryLines {
			sb.WriteString("- " + line + "\n")
		}
	}

	sb.WriteString(`

## 요청사항:
1. opinion_text: 3-4문단의 추천자 의견
2. key_observations: 주요 관찰 사항 2-3가지
3. service_needs: 권장되는 서비스/지원 분야 2-3가지
4. confidence_score: 자료 분량에 따른 신뢰도 (0.0 ~ 1.0)

Return your response in the following JSON format:
{
  "opinion_text": "<추천자 의견 전문>",
  "key_observations": ["<관찰 사항>"],
  "service_needs": ["<필요 서비스>"],
  "confidence_score": <0.0-1.0>
}`)
	return sb.String()
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}
