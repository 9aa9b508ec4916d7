package taskrunner

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SummaryData captures the counters printed after a target finishes.
type SummaryData struct {
	Target   string
	RunID    string
	Counts   map[string]int
	Failed   bool
	Duration time.Duration
}

// RenderSummaryLine returns the single summary line printed after each target.
func RenderSummaryLine(data SummaryData) string {
	target := strings.TrimSpace(data.Target)
	if len(target) == 0 {
		return ""
	}

	parts := []string{fmt.Sprintf("Summary: target=%s", target)}
	if len(data.Counts) > 0 {
		keys := make([]string, 0, len(data.Counts))
		for key := range data.Counts {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", key, data.Counts[key]))
		}
	}

	result := "ok"
	if data.Failed {
		result = "failed"
	}
	parts = append(parts, fmt.Sprintf("result=%s", result))

	durationHuman := data.Duration.Round(time.Millisecond).String()
	parts = append(parts, fmt.Sprintf("duration_human=%s", durationHuman))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", data.Duration.Milliseconds()))

	if runID := strings.TrimSpace(data.RunID); len(runID) > 0 {
		parts = append(parts, fmt.Sprintf("run_id=%s", runID))
	}

	return strings.Join(parts, " ")
}
