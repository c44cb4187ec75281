package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

// 2026-03-05 is a Thursday.
var refDay = time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return refDay.AddDate(0, 0, offset)
}

func done(days ...time.Time) []domain.CompletionEntry {
	out := make([]domain.CompletionEntry, 0, len(days))
	for _, d := range days {
		out = append(out, domain.CompletionEntry{Date: d, Completed: true})
	}
	return out
}

func skip(d time.Time) domain.CompletionEntry {
	reason := "sick"
	return domain.CompletionEntry{Date: d, Completed: false, SkipReason: &reason}
}

func TestComputeStreak_Daily(t *testing.T) {
	tests := []struct {
		name        string
		history     []domain.CompletionEntry
		asOf        time.Time
		wantCurrent int
		wantLongest int
	}{
		{
			name:        "Empty history",
			history:     nil,
			asOf:        refDay,
			wantCurrent: 0,
			wantLongest: 0,
		},
		{
			name:        "Single entry today",
			history:     done(day(0)),
			asOf:        refDay,
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name:        "Single entry yesterday keeps streak alive",
			history:     done(day(-1)),
			asOf:        refDay,
			wantCurrent: 1,
			wantLongest: 1,
		},
		{
			name:        "Single entry two days ago is broken",
			history:     done(day(-2)),
			asOf:        refDay,
			wantCurrent: 0,
			wantLongest: 1,
		},
		{
			name:        "Missed day resets current but keeps longest",
			history:     done(day(-4), day(-3), day(-2), day(0)),
			asOf:        refDay,
			wantCurrent: 1,
			wantLongest: 3,
		},
		{
			name:        "Unsorted entries",
			history:     done(day(-2), day(0), day(-1)),
			asOf:        refDay,
			wantCurrent: 3,
			wantLongest: 3,
		},
		{
			name:        "Longest streak in the past",
			history:     done(day(0), day(-10), day(-11), day(-12)),
			asOf:        refDay,
			wantCurrent: 1,
			wantLongest: 3,
		},
		{
			name:        "Skip today breaks the streak immediately",
			history:     append(done(day(-2), day(-1)), skip(day(0))),
			asOf:        refDay,
			wantCurrent: 0,
			wantLongest: 2,
		},
		{
			name:        "Skip in the middle is a break",
			history:     append(done(day(-3), day(-1), day(0)), skip(day(-2))),
			asOf:        refDay,
			wantCurrent: 2,
			wantLongest: 2,
		},
		{
			name:        "Entries after asOf are ignored",
			history:     done(day(-1), day(0), day(1), day(2)),
			asOf:        refDay,
			wantCurrent: 2,
			wantLongest: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStreak(tt.history, domain.FrequencyDaily, domain.FrequencyConfig{}, tt.asOf)
			assert.Equal(t, tt.wantCurrent, got.Current, "Current Streak mismatch")
			assert.Equal(t, tt.wantLongest, got.Longest, "Longest Streak mismatch")
		})
	}
}

func TestComputeStreak_FullWindowEqualsLength(t *testing.T) {
	for _, n := range []int{1, 2, 7, 30, 400} {
		var days []time.Time
		for i := n - 1; i >= 0; i-- {
			days = append(days, day(-i))
		}

		got := ComputeStreak(done(days...), domain.FrequencyDaily, domain.FrequencyConfig{}, refDay)
		assert.Equal(t, n, got.Current, "n=%d", n)
		assert.Equal(t, n, got.Longest, "n=%d", n)
	}
}

func TestComputeStreak_LastCompletedDate(t *testing.T) {
	history := append(done(day(-3), day(-1)), skip(day(0)))

	got := ComputeStreak(history, domain.FrequencyDaily, domain.FrequencyConfig{}, refDay)

	require.NotNil(t, got.LastCompletedDate)
	assert.Equal(t, day(-1), *got.LastCompletedDate)

	empty := ComputeStreak(nil, domain.FrequencyDaily, domain.FrequencyConfig{}, refDay)
	assert.Nil(t, empty.LastCompletedDate)
}

func TestComputeStreak_DailyWithScheduledDays(t *testing.T) {
	// Mon, Wed, Fri only. refDay is Thursday, so Wednesday day(-1) is the last scheduled day
	// and Sunday day(-4) is outside the schedule.
	cfg := domain.FrequencyConfig{DaysOfWeek: []int{1, 3, 5}}

	history := done(day(-6), day(-4), day(-3), day(-1))

	got := ComputeStreak(history, domain.FrequencyDaily, cfg, refDay)
	assert.Equal(t, 3, got.Current, "Unscheduled days must neither count nor break")
	assert.Equal(t, 3, got.Longest)
}

func TestComputeStreak_Weekly(t *testing.T) {
	cfg := domain.FrequencyConfig{TimesPerPeriod: 2}

	t.Run("Consecutive satisfied weeks with current week in progress", func(t *testing.T) {
		history := done(
			day(-17), day(-15), // week of Feb 16
			day(-10), day(-8), // week of Feb 23
			day(-3), // week of Mar 2, only one so far
		)

		got := ComputeStreak(history, domain.FrequencyWeekly, cfg, refDay)
		assert.Equal(t, 2, got.Current)
		assert.Equal(t, 2, got.Longest)
	})

	t.Run("Week with too few completions breaks", func(t *testing.T) {
		history := done(
			day(-17), day(-15),
			day(-10),
			day(-3), day(-2),
		)

		got := ComputeStreak(history, domain.FrequencyWeekly, cfg, refDay)
		assert.Equal(t, 1, got.Current)
		assert.Equal(t, 1, got.Longest)
	})

	t.Run("Empty week breaks", func(t *testing.T) {
		history := done(day(-17), day(-15), day(-3), day(-2))

		got := ComputeStreak(history, domain.FrequencyWeekly, cfg, refDay)
		assert.Equal(t, 1, got.Current)
	})
}

func TestComputeStreak_Monthly(t *testing.T) {
	history := done(
		time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
	)

	got := ComputeStreak(history, domain.FrequencyMonthly, domain.FrequencyConfig{}, refDay)
	assert.Equal(t, 3, got.Current, "March is in progress and must not break the streak")
	assert.Equal(t, 3, got.Longest)
}

func TestComputeStreak_MonthlyDatesPastMonthEnd(t *testing.T) {
	date := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name        string
		dates       []int
		history     []domain.CompletionEntry
		asOf        time.Time
		wantCurrent int
		wantLongest int
	}{
		{
			name:        "31st skips short months",
			dates:       []int{31},
			history:     done(date(time.January, 31), date(time.March, 31), date(time.May, 31)),
			asOf:        date(time.May, 31),
			wantCurrent: 3,
			wantLongest: 3,
		},
		{
			name:        "30th skips February",
			dates:       []int{30},
			history:     done(date(time.January, 30), date(time.March, 30)),
			asOf:        date(time.March, 30),
			wantCurrent: 2,
			wantLongest: 2,
		},
		{
			name:        "29th skips February outside leap years",
			dates:       []int{29},
			history:     done(date(time.January, 29), date(time.March, 29)),
			asOf:        date(time.March, 29),
			wantCurrent: 2,
			wantLongest: 2,
		},
		{
			name:        "Missed scheduled month still breaks",
			dates:       []int{31},
			history:     done(date(time.January, 31), date(time.May, 31)),
			asOf:        date(time.May, 31),
			wantCurrent: 1,
			wantLongest: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.FrequencyConfig{DatesOfMonth: tt.dates}
			got := ComputeStreak(tt.history, domain.FrequencyMonthly, cfg, tt.asOf)
			assert.Equal(t, tt.wantCurrent, got.Current)
			assert.Equal(t, tt.wantLongest, got.Longest)
		})
	}
}
