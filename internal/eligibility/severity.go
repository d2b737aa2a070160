package eligibility

// Severity is the narrative CRTES-R tier. It is not an eligibility signal:
// a total of 23 is eligible while still "moderate".
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

const (
	crtesrModerateFrom = 15
	crtesrSevereFrom   = 28
)

func CRTESRSeverity(total float64) Severity {
	switch {
	case total >= crtesrSevereFrom:
		return SeveritySevere
	case total >= crtesrModerateFrom:
		return SeverityModerate
	default:
		return SeverityMild
	}
}

func (s Severity) Korean() string {
	switch s {
	case SeveritySevere:
		return "고위험"
	case SeverityModerate:
		return "중등도"
	default:
		return "경미"
	}
}
