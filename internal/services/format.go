package services

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	ArtifactFolder = "integrated-reports"
	artifactPrefix = "IR"
)

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// sanitizeName keeps letters and digits of any script.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, name)
}

func shortID(id string) string {
	r := []rune(id)
	if len(r) > 8 {
		r = r[:8]
	}
	return string(r)
}

// ArtifactFilename builds IR_<name>_<id8>_<YYYYMMDD_HHMMSS>.pdf.
func ArtifactFilename(childName, requestID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s_%s.pdf",
		artifactPrefix,
		sanitizeName(childName),
		shortID(requestID),
		at.Format("20060102_150405"),
	)
}
