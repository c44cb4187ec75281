package analytics

import (
	"sort"
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

// ComputeStreak derives the current and longest streak of a habit from its
// completion history as of the given calendar day.
//
// The period containing asOf gets a grace: while it is not yet satisfied and
// holds no explicit skip, the streak is counted from the period before it.
func ComputeStreak(history []domain.CompletionEntry, freq domain.Frequency, cfg domain.FrequencyConfig, asOf time.Time) domain.StreakData {
	asOf = domain.CalendarDay(asOf)

	entries := make([]domain.CompletionEntry, 0, len(history))
	for _, e := range history {
		if !domain.CalendarDay(e.Date).After(asOf) {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return domain.StreakData{}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.Before(entries[j].Date)
	})

	result := domain.StreakData{}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Completed {
			last := domain.CalendarDay(entries[i].Date)
			result.LastCompletedDate = &last
			break
		}
	}

	sched := newSchedule(freq, cfg)
	first := domain.CalendarDay(entries[0].Date)
	statuses := sched.statuses(entries, first, asOf)
	if len(statuses) == 0 {
		return result
	}

	run := 0
	for _, st := range statuses {
		if st.satisfied {
			run++
			if run > result.Longest {
				result.Longest = run
			}
		} else if !st.pending() {
			run = 0
		}
	}

	i := len(statuses) - 1
	if statuses[i].pending() {
		i--
	}
	for ; i >= 0 && statuses[i].satisfied; i-- {
		result.Current++
	}

	return result
}
