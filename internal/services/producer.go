package services

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/config"
	"alfredoptarigan/counsel-report/internal/docx"
	"alfredoptarigan/counsel-report/internal/eligibility"
	"alfredoptarigan/counsel-report/internal/models"
)

// DocumentProducer renders one form for a request and returns it as PDF.
type DocumentProducer interface {
	Kind() models.DocumentKind
	Produce(ctx context.Context, req *models.ReportRequest) ([]byte, error)
}

// templateProducer owns a read-only copy of the template bytes. Every call
// opens its own document from them.
type templateProducer struct {
	kind       models.DocumentKind
	template   []byte
	layout     docx.Layout
	populators []populator
	prepare    func(ctx context.Context, req *models.ReportRequest) *ProducerInput
	filler     *docx.Filler
	converter  Converter
	log        zerolog.Logger
}

func NewReferralProducer(templatePath string, converter Converter, log zerolog.Logger) (DocumentProducer, error) {
	tpl, err := loadTemplate("TEMPLATE_REFERRAL_PATH", templatePath)
	if err != nil {
		return nil, err
	}
	return &templateProducer{
		kind:       models.KindReferral,
		template:   tpl,
		layout:     ReferralLayout,
		populators: referralPopulators(),
		prepare: func(_ context.Context, req *models.ReportRequest) *ProducerInput {
			return &ProducerInput{
				Request:     req,
				Eligibility: eligibility.EvaluateAll(req.ScoreSets()),
			}
		},
		filler:    docx.NewFiller(log),
		converter: converter,
		log:       log.With().Str("component", "referral_producer").Logger(),
	}, nil
}

func NewRecommendationProducer(
	templatePath string,
	opinions OpinionGenerator,
	converter Converter,
	log zerolog.Logger,
) (DocumentProducer, error) {
	tpl, err := loadTemplate("TEMPLATE_RECOMMENDATION_PATH", templatePath)
	if err != nil {
		return nil, err
	}
	return &templateProducer{
		kind:       models.KindRecommendation,
		template:   tpl,
		layout:     RecommendationLayout,
		populators: recommendationPopulators(),
		prepare: func(ctx context.Context, req *models.ReportRequest) *ProducerInput {
			return &ProducerInput{
				Request: req,
				Opinion: opinions.Generate(ctx, req),
			}
		},
		filler:    docx.NewFiller(log),
		converter: converter,
		log:       log.With().Str("component", "recommendation_producer").Logger(),
	}, nil
}

func loadTemplate(key, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &config.ConfigurationError{Key: key, Value: path, Err: err}
	}
	if _, err := docx.Open(data); err != nil {
		return nil, &config.ConfigurationError{Key: key, Value: path, Err: err}
	}
	return data, nil
}

func (p *templateProducer) Kind() models.DocumentKind {
	return p.kind
}

// Produce implements DocumentProducer.
func (p *templateProducer) Produce(ctx context.Context, req *models.ReportRequest) ([]byte, error) {
	doc, err := p.fill(ctx, req)
	if err != nil {
		return nil, err
	}
	filled, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to save %s document: %w", p.kind, err)
	}
	return p.converter.Convert(ctx, filled)
}

func (p *templateProducer) fill(ctx context.Context, req *models.ReportRequest) (*docx.Document, error) {
	doc, err := docx.Open(p.template)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s template: %w", p.kind, err)
	}

	log := p.log.With().Str("request_id", req.CounselRequestID).Logger()
	w := &sectionWriter{
		filler: p.filler,
		slots:  doc.Resolve(p.layout),
		log:    log,
	}
	if skipped := populate(w, p.prepare(ctx, req), p.populators); len(skipped) > 0 {
		log.Warn().Strs("sections", skipped).Msg("sections left as template defaults")
	}

	if n := docx.NormalizeTableWidths(doc, doc.UsableWidth()); n > 0 {
		log.Debug().Int("tables", n).Msg("table widths normalized")
	}
	return doc, nil
}
