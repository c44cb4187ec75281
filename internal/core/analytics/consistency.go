package analytics

import (
	"math"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

// ComputeConsistency returns the share (0..100) of expected periods inside the
// trailing window of windowDays ending at asOf that were satisfied. A period
// still in progress only counts once it is satisfied or explicitly skipped.
// No expected periods yields 0.
func ComputeConsistency(history []domain.CompletionEntry, freq domain.Frequency, cfg domain.FrequencyConfig, windowDays int, asOf time.Time) float64 {
	if windowDays <= 0 {
		return 0
	}

	asOf = domain.CalendarDay(asOf)
	from := asOf.AddDate(0, 0, -(windowDays - 1))

	sched := newSchedule(freq, cfg)

	expected, satisfied := 0, 0
	for _, st := range sched.statuses(history, from, asOf) {
		if st.pending() {
			continue
		}
		expected++
		if st.satisfied {
			satisfied++
		}
	}

	if expected == 0 {
		return 0
	}
	return clamp(100*float64(satisfied)/float64(expected), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
