package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/comitanigiacomo/kanso-analytics/internal/core/domain"
)

func TestComputeConsistency(t *testing.T) {
	t.Run("No expected periods returns zero", func(t *testing.T) {
		assert.Equal(t, 0.0, ComputeConsistency(nil, domain.FrequencyDaily, domain.FrequencyConfig{}, 0, refDay))
		assert.Equal(t, 0.0, ComputeConsistency(nil, domain.FrequencyDaily, domain.FrequencyConfig{}, -5, refDay))

		// A one-day window whose only day is still pending has nothing expected yet.
		assert.Equal(t, 0.0, ComputeConsistency(nil, domain.FrequencyDaily, domain.FrequencyConfig{}, 1, refDay))
	})

	t.Run("Daily: all days done", func(t *testing.T) {
		history := done(day(-6), day(-5), day(-4), day(-3), day(-2), day(-1), day(0))
		assert.Equal(t, 100.0, ComputeConsistency(history, domain.FrequencyDaily, domain.FrequencyConfig{}, 7, refDay))
	})

	t.Run("Daily: pending today is not held against the user", func(t *testing.T) {
		history := done(day(-6), day(-5), day(-4), day(-3), day(-2), day(-1))
		assert.Equal(t, 100.0, ComputeConsistency(history, domain.FrequencyDaily, domain.FrequencyConfig{}, 7, refDay))
	})

	t.Run("Daily: half the days done", func(t *testing.T) {
		history := done(day(-4), day(-2), day(0))
		// expected: day(-4)..day(0) minus nothing pending = 5, satisfied 3
		got := ComputeConsistency(history, domain.FrequencyDaily, domain.FrequencyConfig{}, 5, refDay)
		assert.InDelta(t, 60.0, got, 0.001)
	})

	t.Run("Daily: explicit skip today counts as expected", func(t *testing.T) {
		history := append(done(day(-1)), skip(day(0)))
		got := ComputeConsistency(history, domain.FrequencyDaily, domain.FrequencyConfig{}, 2, refDay)
		assert.InDelta(t, 50.0, got, 0.001)
	})

	t.Run("Weekly: agrees with streak period definition", func(t *testing.T) {
		cfg := domain.FrequencyConfig{TimesPerPeriod: 2}
		history := done(day(-17), day(-15), day(-10), day(-3))

		// Weeks of Feb 16 (satisfied), Feb 23 (1 of 2), Mar 2 (pending).
		got := ComputeConsistency(history, domain.FrequencyWeekly, cfg, 17, refDay)
		assert.InDelta(t, 50.0, got, 0.001)

		streak := ComputeStreak(history, domain.FrequencyWeekly, cfg, refDay)
		assert.Equal(t, 0, streak.Current)
	})

	t.Run("Monthly: months without the scheduled date are not expected", func(t *testing.T) {
		cfg := domain.FrequencyConfig{DatesOfMonth: []int{31}}
		asOf := time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC)
		window := int(asOf.Sub(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).Hours()/24) + 1

		all := done(
			time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			asOf,
		)
		assert.InDelta(t, 100.0, ComputeConsistency(all, domain.FrequencyMonthly, cfg, window, asOf), 0.001)

		missedMarch := done(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), asOf)
		assert.InDelta(t, 200.0/3, ComputeConsistency(missedMarch, domain.FrequencyMonthly, cfg, window, asOf), 0.001)
	})

	t.Run("Result is clamped", func(t *testing.T) {
		history := done(day(0), day(0), day(-1))
		got := ComputeConsistency(history, domain.FrequencyDaily, domain.FrequencyConfig{}, 2, refDay)
		assert.LessOrEqual(t, got, 100.0)
		assert.GreaterOrEqual(t, got, 0.0)
	})
}
