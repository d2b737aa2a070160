package models

// Instrument identifies one of the scored psychological assessments.
type Instrument string

const (
	InstrumentKPRC   Instrument = "KPRC_CO_SG_E"
	InstrumentSDQA   Instrument = "SDQ_A"
	InstrumentCRTESR Instrument = "CRTES_R"
)

// CanonicalInstruments is the fixed output order for every instrument listing.
var CanonicalInstruments = []Instrument{InstrumentKPRC, InstrumentSDQA, InstrumentCRTESR}

// DisplayName returns the label used in documents and PDF metadata.
func (i Instrument) DisplayName() string {
	switch i {
	case InstrumentKPRC:
		return "KPRC 인성평정척도"
	case InstrumentSDQA:
		return "강점·난점 설문지 (SDQ-A)"
	case InstrumentCRTESR:
		return "아동외상반응척도 (CRTES-R)"
	default:
		return string(i)
	}
}

func (i Instrument) Valid() bool {
	switch i {
	case InstrumentKPRC, InstrumentSDQA, InstrumentCRTESR:
		return true
	}
	return false
}

// AssessmentScoreSet holds the sub-scale scores of one instrument.
// A nil value means the score was not available.
type AssessmentScoreSet struct {
	Instrument Instrument
	Scores     map[string]*float64
}

// NewScoreSet copies scores so the set stays immutable after construction.
func NewScoreSet(instrument Instrument, scores map[string]*float64) AssessmentScoreSet {
	copied := make(map[string]*float64, len(scores))
	for name, v := range scores {
		if v == nil {
			copied[name] = nil
			continue
		}
		val := *v
		copied[name] = &val
	}
	return AssessmentScoreSet{Instrument: instrument, Scores: copied}
}

// Score returns the value of a sub-scale and whether it is present.
func (s AssessmentScoreSet) Score(name string) (float64, bool) {
	v, ok := s.Scores[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// AllNull reports whether no sub-scale carries a value.
func (s AssessmentScoreSet) AllNull() bool {
	for _, v := range s.Scores {
		if v != nil {
			return false
		}
	}
	return true
}

// EligibilityStatus is tri-state so that "no data" never reads as "no risk".
type EligibilityStatus string

const (
	StatusNotComputed  EligibilityStatus = "not_computed"
	StatusNotTriggered EligibilityStatus = "not_triggered"
	StatusTriggered    EligibilityStatus = "triggered"
)

type InstrumentEligibility struct {
	Instrument      Instrument        `json:"instrument"`
	Status          EligibilityStatus `json:"status"`
	TriggeredScales []string          `json:"triggered_scales"`
	Reasons         []string          `json:"reasons"`
}

func (e InstrumentEligibility) Triggered() bool {
	return e.Status == StatusTriggered
}

// CombinedEligibility is the funding-relevant OR over present instruments.
type CombinedEligibility struct {
	Eligible    bool         `json:"eligible"`
	TriggeredBy []Instrument `json:"triggered_by"`
	Evaluated   []Instrument `json:"evaluated"`
	NotComputed []Instrument `json:"not_computed"`

	Details map[Instrument]InstrumentEligibility `json:"details"`
}

// Detail returns the per-instrument entry, if the instrument was present.
func (c CombinedEligibility) Detail(instrument Instrument) (InstrumentEligibility, bool) {
	d, ok := c.Details[instrument]
	return d, ok
}
