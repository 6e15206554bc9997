package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arbmon/internal/config"
	"arbmon/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func entry(symbol string, spread float64, ts time.Time) model.HistoryEntry {
	return model.HistoryEntry{
		ID:            symbol + "-" + ts.Format(time.RFC3339Nano),
		Symbol:        symbol,
		Name:          symbol,
		Timestamp:     ts,
		SpreadPercent: spread,
		SpotPrice:     100,
		FuturesPrice:  100 * (1 + spread/100),
		Exchange:      "Binance",
	}
}

func TestAdmitMergeIdempotence(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	tr := NewTracker(fixedClock(base))
	set := config.DefaultSettings()

	first := entry("BTC", 0.801, base)
	second := entry("BTC", 0.799, base.Add(5*time.Minute)) // same after 2dp rounding

	assert.True(t, tr.Admit([]model.HistoryEntry{first}, set))
	assert.True(t, tr.Admit([]model.HistoryEntry{second}, set))

	today := tr.Today()
	if assert.Len(t, today, 1) {
		got := today[0]
		// Same rounded observation: original record kept, timestamp advanced.
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, 0.801, got.SpreadPercent)
		assert.Equal(t, second.Timestamp, got.Timestamp)
	}

	// Re-admitting the newest observation changes nothing.
	assert.False(t, tr.Admit([]model.HistoryEntry{second}, set))
}

func TestAdmitMonotonicBest(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	tr := NewTracker(fixedClock(base))
	set := config.DefaultSettings()

	tr.Admit([]model.HistoryEntry{entry("BTC", 0.6, base)}, set)
	tr.Admit([]model.HistoryEntry{entry("BTC", 1.3, base.Add(time.Minute))}, set)
	tr.Admit([]model.HistoryEntry{entry("BTC", 0.4, base.Add(2*time.Minute))}, set)

	today := tr.Today()
	if assert.Len(t, today, 1) {
		assert.Equal(t, 1.3, today[0].SpreadPercent)
	}
}

func TestAdmitGates(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	set := config.DefaultSettings() // threshold 0.5, outlier 8, noise floor 0.05

	t.Run("below open threshold rejected", func(t *testing.T) {
		tr := NewTracker(fixedClock(base))
		assert.False(t, tr.Admit([]model.HistoryEntry{entry("BTC", 0.4, base)}, set))
		assert.Empty(t, tr.Today())
	})

	t.Run("above outlier cutoff rejected", func(t *testing.T) {
		tr := NewTracker(fixedClock(base))
		assert.False(t, tr.Admit([]model.HistoryEntry{entry("BTC", 11.0, base)}, set))
		assert.Empty(t, tr.Today())
	})

	t.Run("negative spread admitted by magnitude", func(t *testing.T) {
		tr := NewTracker(fixedClock(base))
		assert.True(t, tr.Admit([]model.HistoryEntry{entry("BTC", -1.2, base)}, set))
		assert.Len(t, tr.Today(), 1)
	})
}

func TestLoadFiltersToToday(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)
	tr := NewTracker(fixedClock(now))

	yesterday := entry("BTC", 1.0, now.Add(-24*time.Hour))
	thisMorning := entry("ETH", 0.9, now.Add(-2*time.Hour))
	tr.Load([]model.HistoryEntry{yesterday, thisMorning})

	today := tr.Today()
	if assert.Len(t, today, 1) {
		assert.Equal(t, "ETH", today[0].Symbol)
	}
}

func TestDayRollover(t *testing.T) {
	now := time.Date(2025, 6, 2, 23, 50, 0, 0, time.Local)
	clock := &now
	tr := NewTracker(func() time.Time { return *clock })
	set := config.DefaultSettings()

	tr.Admit([]model.HistoryEntry{entry("BTC", 1.0, now)}, set)
	assert.Len(t, tr.Today(), 1)

	next := now.Add(20 * time.Minute) // past local midnight
	clock = &next
	assert.Empty(t, tr.Today())
}

func TestDailyProfit(t *testing.T) {
	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.Local)
	set := config.DefaultSettings() // round trip cost 2*0.10 + 2*0.05 = 0.30

	t.Run("zero admitted entries yields zero", func(t *testing.T) {
		tr := NewTracker(fixedClock(base))
		assert.Equal(t, 0.0, tr.DailyProfit(set))
	})

	t.Run("cost subtracted and averaged across symbols", func(t *testing.T) {
		tr := NewTracker(fixedClock(base))
		tr.Admit([]model.HistoryEntry{
			entry("BTC", 1.3, base),
			entry("ETH", 0.9, base),
		}, set)
		// (1.3-0.3 + 0.9-0.3) / 2
		assert.InDelta(t, 0.8, tr.DailyProfit(set), 1e-9)
	})

	t.Run("net profit floors at zero per symbol", func(t *testing.T) {
		tr := NewTracker(fixedClock(base))
		expensive := set
		expensive.FeePerLeg = 1.0
		expensive.SlipPerLeg = 0.5 // round trip cost 3.0
		tr.Admit([]model.HistoryEntry{entry("BTC", 2.0, base)}, expensive)
		assert.Equal(t, 0.0, tr.DailyProfit(expensive))
	})

	t.Run("aggregation methods agree on single samples", func(t *testing.T) {
		tr := NewTracker(fixedClock(base))
		tr.Admit([]model.HistoryEntry{entry("BTC", 1.3, base)}, set)
		for _, method := range []string{"max", "median", "p95", "average"} {
			s := set
			s.ProfitMethod = method
			assert.InDelta(t, 1.0, tr.DailyProfit(s), 1e-9, "method %s", method)
		}
	})
}
