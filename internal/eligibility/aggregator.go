package eligibility

import (
	"alfredoptarigan/counsel-report/internal/models"
)

// Results carries up to one evaluation per instrument. A nil field means the
// instrument was not part of the request.
type Results struct {
	KPRC   *models.InstrumentEligibility
	SDQA   *models.InstrumentEligibility
	CRTESR *models.InstrumentEligibility
}

func (r Results) get(instrument models.Instrument) *models.InstrumentEligibility {
	switch instrument {
	case models.InstrumentKPRC:
		return r.KPRC
	case models.InstrumentSDQA:
		return r.SDQA
	case models.InstrumentCRTESR:
		return r.CRTESR
	}
	return nil
}

// ResultsFrom slots evaluations by instrument regardless of slice order. The
// first entry wins when an instrument appears twice.
func ResultsFrom(list []models.InstrumentEligibility) Results {
	var r Results
	for i := range list {
		e := list[i]
		switch e.Instrument {
		case models.InstrumentKPRC:
			if r.KPRC == nil {
				r.KPRC = &e
			}
		case models.InstrumentSDQA:
			if r.SDQA == nil {
				r.SDQA = &e
			}
		case models.InstrumentCRTESR:
			if r.CRTESR == nil {
				r.CRTESR = &e
			}
		}
	}
	return r
}

// Combine ORs the present instruments. Absent instruments contribute nothing
// and listings always follow the canonical KPRC, SDQ-A, CRTES-R order.
func Combine(r Results) models.CombinedEligibility {
	combined := models.CombinedEligibility{
		TriggeredBy: []models.Instrument{},
		Evaluated:   []models.Instrument{},
		NotComputed: []models.Instrument{},
		Details:     map[models.Instrument]models.InstrumentEligibility{},
	}

	for _, instrument := range models.CanonicalInstruments {
		e := r.get(instrument)
		if e == nil {
			continue
		}
		combined.Details[instrument] = *e
		if e.Status == models.StatusNotComputed {
			combined.NotComputed = append(combined.NotComputed, instrument)
			continue
		}
		combined.Evaluated = append(combined.Evaluated, instrument)
		if e.Triggered() {
			combined.Eligible = true
			combined.TriggeredBy = append(combined.TriggeredBy, instrument)
		}
	}
	return combined
}

// EvaluateAll runs each score set through its instrument's evaluator and
// combines the outcome.
func EvaluateAll(sets []models.AssessmentScoreSet) models.CombinedEligibility {
	list := make([]models.InstrumentEligibility, 0, len(sets))
	for _, set := range sets {
		if e, ok := EvaluateSet(set); ok {
			list = append(list, e)
		}
	}
	return Combine(ResultsFrom(list))
}
