package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/models"
)

// RecommenderOpinion is the narrative for the recommender opinion field.
type RecommenderOpinion struct {
	Text            string   `json:"opinion_text"`
	KeyObservations []string `json:"key_observations"`
	ServiceNeeds    []string `json:"service_needs"`
	Confidence      float64  `json:"confidence_score"`
	Fallback        bool     `json:"-"`
}

// OpinionGenerator never fails: when generation is unavailable it returns a
// fallback opinion built from the request.
type OpinionGenerator interface {
	Generate(ctx context.Context, req *models.ReportRequest) *RecommenderOpinion
}

type opinionGenerator struct {
	gemini      GeminiService
	prompts     *PromptBuilder
	temperature float32
	maxRetries  int
	log         zerolog.Logger
}

// NewOpinionGenerator accepts a nil gemini, in which case every opinion is
// the fallback.
func NewOpinionGenerator(gemini GeminiService, maxRetries int, log zerolog.Logger) OpinionGenerator {
	return &opinionGenerator{
		gemini:      gemini,
		prompts:     NewPromptBuilder(),
		temperature: 0.5,
		maxRetries:  maxRetries,
		log:         log.With().Str("component", "opinion_generator").Logger(),
	}
}

func (g *opinionGenerator) Generate(ctx context.Context, req *models.ReportRequest) *RecommenderOpinion {
	if g.gemini == nil {
		return FallbackOpinion(req)
	}

	prompt := g.prompts.BuildRecommenderOpinionPrompt(req)
	g.log.Info().
		Str("request_id", req.CounselRequestID).
		Int("prompt_chars", len(prompt)).
		Msg("generating recommender opinion")

	response, err := g.gemini.GenerateTextWithRetry(ctx, prompt, g.temperature, g.maxRetries)
	if err != nil {
		g.log.Warn().Err(err).Str("request_id", req.CounselRequestID).Msg("opinion generation failed, using fallback")
		return FallbackOpinion(req)
	}

	opinion, err := parseOpinion(response)
	if err != nil {
		g.log.Warn().Err(err).Str("request_id", req.CounselRequestID).Msg("opinion response unusable, using fallback")
		return FallbackOpinion(req)
	}
	return opinion
}

func parseOpinion(response string) (*RecommenderOpinion, error) {
	var o RecommenderOpinion
	if err := json.Unmarshal([]byte(extractJSON(response)), &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if strings.TrimSpace(o.Text) == "" {
		return nil, fmt.Errorf("opinion_text is empty")
	}
	return &o, nil
}

// FallbackOpinion assembles goals, recommendations and key findings of the
// attached assessments. Without any of them a fixed recommendation text for
// the child is used.
func FallbackOpinion(req *models.ReportRequest) *RecommenderOpinion {
	var parts []string
	if goals := strings.TrimSpace(req.RequestMotivation.Goals); goals != "" {
		parts = append(parts, "[상담 목표]\n"+goals)
	}

	var recs, findings []string
	for _, instrument := range models.CanonicalInstruments {
		s, ok := summaryOf(req, instrument)
		if !ok || s == nil {
			continue
		}
		recs = append(recs, s.Recommendations...)
		findings = append(findings, s.KeyFindings...)
	}
	if b := bullets(recs); len(b) > 0 {
		parts = append(parts, "[권장사항]\n"+strings.Join(b, "\n"))
	}
	if b := bullets(findings); len(b) > 0 {
		parts = append(parts, "[핵심 발견사항]\n"+strings.Join(b, "\n"))
	}

	if len(parts) > 0 {
		return &RecommenderOpinion{Text: strings.Join(parts, "\n\n"), Confidence: 0.5, Fallback: true}
	}

	text := fmt.Sprintf("%s 아동에 대한 심리상담 서비스 이용을 추천합니다.\n\n"+
		"본 추천은 보호자의 요청 및 초기 상담 결과를 바탕으로 작성되었습니다. "+
		"아동의 정서적 안정과 건강한 발달을 위해 전문 상담 서비스가 도움이 될 것으로 판단됩니다.\n\n"+
		"정기적인 상담 세션을 통해 아동의 상태를 지속적으로 살피고 "+
		"필요시 추가적인 지원 방안을 마련하시기를 권고드립니다.", req.ChildName)

	return &RecommenderOpinion{
		Text: text,
		KeyObservations: []string{
			"보호자 요청에 따른 상담 서비스 연계 필요",
			"아동의 정서적 안정 지원 필요",
		},
		ServiceNeeds: []string{
			"아동·청소년 심리상담",
			"정서 지원 서비스",
		},
		Confidence: 0.5,
		Fallback:   true,
	}
}
