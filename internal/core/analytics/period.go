// Package analytics holds the pure computations behind streaks, consistency,
// productivity scores and achievement progress. Nothing here touches storage.
package analytics

import (
	"time"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

type period struct {
	start time.Time
	end   time.Time
}

func (p period) contains(day time.Time) bool {
	return !day.Before(p.start) && !day.After(p.end)
}

type tally struct {
	completions int
	skipped     bool
}

// schedule turns a frequency rule into calendar periods. StreakTracker and
// ConsistencyScorer both go through it so they agree on what a satisfied period is.
type schedule struct {
	freq domain.Frequency
	cfg  domain.FrequencyConfig
}

func newSchedule(freq domain.Frequency, cfg domain.FrequencyConfig) schedule {
	switch freq {
	case domain.FrequencyWeekly, domain.FrequencyMonthly:
	default:
		freq = domain.FrequencyDaily
	}
	return schedule{freq: freq, cfg: cfg}
}

func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func monthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func daysIn(monthFirst time.Time) int {
	return monthFirst.AddDate(0, 1, -1).Day()
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// qualifies reports whether a completion on day counts toward its period.
func (s schedule) qualifies(day time.Time) bool {
	switch s.freq {
	case domain.FrequencyMonthly:
		return len(s.cfg.DatesOfMonth) == 0 || contains(s.cfg.DatesOfMonth, day.Day())
	default:
		return len(s.cfg.DaysOfWeek) == 0 || contains(s.cfg.DaysOfWeek, int(day.Weekday()))
	}
}

func (s schedule) periodKey(day time.Time) time.Time {
	switch s.freq {
	case domain.FrequencyWeekly:
		return weekStart(day)
	case domain.FrequencyMonthly:
		return monthStart(day)
	default:
		return day
	}
}

// scheduled is false for a monthly period whose configured dates all fall past
// the end of that month. Such a period is neither expected nor a break.
func (s schedule) scheduled(p period) bool {
	if s.freq != domain.FrequencyMonthly || len(s.cfg.DatesOfMonth) == 0 {
		return true
	}
	last := daysIn(p.start)
	for _, d := range s.cfg.DatesOfMonth {
		if d <= last {
			return true
		}
	}
	return false
}

func (s schedule) required(p period) int {
	if s.freq == domain.FrequencyDaily {
		return 1
	}
	if s.cfg.TimesPerPeriod > 0 {
		return s.cfg.TimesPerPeriod
	}

	switch s.freq {
	case domain.FrequencyWeekly:
		if n := len(s.cfg.DaysOfWeek); n > 0 {
			return n
		}
	case domain.FrequencyMonthly:
		n := 0
		last := daysIn(p.start)
		for _, d := range s.cfg.DatesOfMonth {
			if d <= last {
				n++
			}
		}
		if n > 0 {
			return n
		}
	}
	return 1
}

// periods lists every period intersecting [from, to], in ascending order.
func (s schedule) periods(from, to time.Time) []period {
	var out []period
	switch s.freq {
	case domain.FrequencyWeekly:
		for start := weekStart(from); !start.After(to); start = start.AddDate(0, 0, 7) {
			out = append(out, period{start: start, end: start.AddDate(0, 0, 6)})
		}
	case domain.FrequencyMonthly:
		for start := monthStart(from); !start.After(to); start = start.AddDate(0, 1, 0) {
			p := period{start: start, end: start.AddDate(0, 1, -1)}
			if s.scheduled(p) {
				out = append(out, p)
			}
		}
	default:
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			if s.qualifies(day) {
				out = append(out, period{start: day, end: day})
			}
		}
	}
	return out
}

// tallies groups entries up to asOf by period. Completions on days outside the
// schedule are ignored; explicit skips are kept as breaks.
func (s schedule) tallies(history []domain.CompletionEntry, asOf time.Time) map[time.Time]*tally {
	out := make(map[time.Time]*tally)
	for _, e := range history {
		day := domain.CalendarDay(e.Date)
		if day.After(asOf) || !s.qualifies(day) {
			continue
		}

		key := s.periodKey(day)
		t, ok := out[key]
		if !ok {
			t = &tally{}
			out[key] = t
		}
		if e.Completed {
			t.completions++
		} else {
			t.skipped = true
		}
	}
	return out
}

type periodStatus struct {
	period     period
	satisfied  bool
	skipped    bool
	inProgress bool
}

func (s schedule) statuses(history []domain.CompletionEntry, from, asOf time.Time) []periodStatus {
	tallies := s.tallies(history, asOf)

	ps := s.periods(from, asOf)
	out := make([]periodStatus, 0, len(ps))
	for _, p := range ps {
		st := periodStatus{period: p, inProgress: p.contains(asOf)}
		if t, ok := tallies[s.periodKey(p.start)]; ok {
			st.satisfied = t.completions >= s.required(p)
			st.skipped = t.skipped
		}
		out = append(out, st)
	}
	return out
}

// pending is true for the period containing asOf while it can still be satisfied.
func (st periodStatus) pending() bool {
	return st.inProgress && !st.satisfied && !st.skipped
}
