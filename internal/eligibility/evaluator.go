// Package eligibility decides whether a child qualifies for the funded
// counseling voucher. Each instrument keeps its own threshold convention; the
// aggregator only ORs the per-instrument outcomes.
package eligibility

import (
	"alfredoptarigan/counsel-report/internal/models"
)

// KPRC sub-scales in canonical profile order.
const (
	ScaleERS = "ERS"
	ScaleICN = "ICN"
	ScaleF   = "F"
	ScaleVDL = "VDL"
	ScalePDL = "PDL"
	ScaleANX = "ANX"
	ScaleDEP = "DEP"
	ScaleSOM = "SOM"
	ScaleDLQ = "DLQ"
	ScaleHPR = "HPR"
	ScaleFAM = "FAM"
	ScaleSOC = "SOC"
	ScalePSY = "PSY"
)

// SDQ-A and CRTES-R score keys.
const (
	ScaleStrengths    = "strengths"
	ScaleDifficulties = "difficulties"
	ScaleTotal        = "total"
)

// KPRCScales lists all 13 profile scales in canonical order.
var KPRCScales = []string{
	ScaleERS, ScaleICN, ScaleF, ScaleVDL, ScalePDL, ScaleANX, ScaleDEP,
	ScaleSOM, ScaleDLQ, ScaleHPR, ScaleFAM, ScaleSOC, ScalePSY,
}

// KPRCExcluded are validity scales kept in the profile but never counted
// toward eligibility.
var KPRCExcluded = map[string]bool{
	ScaleICN: true,
	ScaleF:   true,
}

var (
	kprcRules = buildKPRCRules()
	sdqaRules = []rule{
		mustRule(ScaleStrengths, "score <= 4.0", "≤4"),
		mustRule(ScaleDifficulties, "score >= 17.0", "≥17"),
	}
	crtesrRules = []rule{
		mustRule(ScaleTotal, "score >= 23.0", "≥23"),
	}
)

func buildKPRCRules() []rule {
	rules := make([]rule, 0, len(KPRCScales))
	for _, scale := range KPRCScales {
		switch {
		case KPRCExcluded[scale]:
			continue
		case scale == ScaleERS:
			// ego-resilience is inverted: a low T-score is the risk signal
			rules = append(rules, mustRule(scale, "score <= 30.0", "T≤30"))
		default:
			rules = append(rules, mustRule(scale, "score >= 65.0", "T≥65"))
		}
	}
	return rules
}

// EvaluateKPRC applies instrument A rules.
func EvaluateKPRC(set models.AssessmentScoreSet) models.InstrumentEligibility {
	return evaluate(models.InstrumentKPRC, set, kprcRules)
}

// EvaluateSDQA applies instrument B rules. Both sub-scores may trigger together.
func EvaluateSDQA(set models.AssessmentScoreSet) models.InstrumentEligibility {
	return evaluate(models.InstrumentSDQA, set, sdqaRules)
}

// EvaluateCRTESR applies instrument C's eligibility cut-off. Severity tiering
// is separate, see CRTESRSeverity.
func EvaluateCRTESR(set models.AssessmentScoreSet) models.InstrumentEligibility {
	return evaluate(models.InstrumentCRTESR, set, crtesrRules)
}

func evaluate(instrument models.Instrument, set models.AssessmentScoreSet, rules []rule) models.InstrumentEligibility {
	result := models.InstrumentEligibility{
		Instrument:      instrument,
		Status:          models.StatusNotComputed,
		TriggeredScales: []string{},
		Reasons:         []string{},
	}
	if set.AllNull() {
		return result
	}

	result.Status = models.StatusNotTriggered
	for _, r := range rules {
		score, ok := set.Score(r.scale)
		if !ok || !r.matches(score) {
			continue
		}
		result.TriggeredScales = append(result.TriggeredScales, r.scale)
		result.Reasons = append(result.Reasons, r.reason(score))
	}
	if len(result.TriggeredScales) > 0 {
		result.Status = models.StatusTriggered
	}
	return result
}

// EvaluateSet dispatches to the evaluator of the set's instrument.
func EvaluateSet(set models.AssessmentScoreSet) (models.InstrumentEligibility, bool) {
	switch set.Instrument {
	case models.InstrumentKPRC:
		return EvaluateKPRC(set), true
	case models.InstrumentSDQA:
		return EvaluateSDQA(set), true
	case models.InstrumentCRTESR:
		return EvaluateCRTESR(set), true
	default:
		return models.InstrumentEligibility{}, false
	}
}
