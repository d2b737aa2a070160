package services

import (
	"github.com/rs/zerolog"

	"alfredoptarigan/counsel-report/internal/docx"
	"alfredoptarigan/counsel-report/internal/models"
)

// AbsencePolicy decides what an optional section does when its input is nil.
type AbsencePolicy int

const (
	// SkipSection leaves the template defaults in place.
	SkipSection AbsencePolicy = iota
	// RenderBlank fills every field of the section from the zero value.
	RenderBlank
)

func (p AbsencePolicy) String() string {
	if p == RenderBlank {
		return "render_blank"
	}
	return "skip_section"
}

// OptionalSection binds a fill function for an optional input to its policy.
type OptionalSection[T any] struct {
	Name   string
	Policy AbsencePolicy
	Fill   func(v T)
}

// Apply runs Fill with *v, or with the zero T under RenderBlank. It reports
// whether Fill ran.
func (s OptionalSection[T]) Apply(v *T) bool {
	if v != nil {
		s.Fill(*v)
		return true
	}
	if s.Policy == RenderBlank {
		var zero T
		s.Fill(zero)
		return true
	}
	return false
}

// ProducerInput is everything a populator may read. Populators never read
// the document back.
type ProducerInput struct {
	Request     *models.ReportRequest
	Eligibility models.CombinedEligibility
	Opinion     *RecommenderOpinion
}

// sectionWriter is the structural handle handed to populators.
type sectionWriter struct {
	filler *docx.Filler
	slots  *docx.Slots
	log    zerolog.Logger
}

func (w *sectionWriter) set(name, text string) {
	w.filler.SetText(w.slots.Get(name), text)
}

func (w *sectionWriter) group(names ...string) []docx.Slot {
	return w.slots.Group(names...)
}

// populator fills one logical section from a fixed list of slots.
type populator struct {
	name  string
	slots []string
	fill  func(w *sectionWriter, d *ProducerInput)
}

// populate runs every populator in order. A section whose slots did not
// resolve is logged and skipped; the others still run.
func populate(w *sectionWriter, d *ProducerInput, populators []populator) (skipped []string) {
	for _, p := range populators {
		if err := w.slots.Require(p.name, p.slots...); err != nil {
			w.log.Warn().Err(err).Str("section", p.name).Msg("template shape mismatch, section skipped")
			skipped = append(skipped, p.name)
			continue
		}
		p.fill(w, d)
	}
	return skipped
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
