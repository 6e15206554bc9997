// Package history keeps a rolling same-day log of the best opportunity seen
// per symbol and derives the theoretical daily-profit estimate from it.
package history

import (
	"math"
	"sort"
	"sync"
	"time"

	"arbmon/internal/config"
	"arbmon/internal/model"
)

// Tracker holds at most one entry per symbol for the current calendar day.
// It is not a time series: the merge policy keeps the single most extreme
// observation per symbol, answering "best opportunity seen today". The clock
// is injected so day boundaries are testable.
type Tracker struct {
	now     func() time.Time
	mu      sync.RWMutex
	entries map[string]model.HistoryEntry
}

func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		now:     now,
		entries: make(map[string]model.HistoryEntry),
	}
}

// Load seeds the tracker from persisted entries, discarding anything from
// before local midnight. That filter is the only pruning past days get.
func (t *Tracker) Load(entries []model.HistoryEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	start := startOfDay(t.now())
	for _, e := range entries {
		if e.Timestamp.Before(start) {
			continue
		}
		t.merge(e)
	}
}

// Admit applies the admission gate and the merge policy to a batch of
// candidate entries. It reports whether the tracked state changed, so callers
// know when to persist.
func (t *Tracker) Admit(candidates []model.HistoryEntry, set config.Settings) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropStale()

	changed := false
	for _, c := range candidates {
		mag := math.Abs(c.SpreadPercent)
		if mag <= set.NoiseFloorPct || mag > set.OutlierPct || mag <= set.Threshold {
			continue
		}
		if t.merge(c) {
			changed = true
		}
	}
	return changed
}

// merge applies the per-symbol policy. Equal spreads after rounding to two
// decimals are the same observation: keep the existing record, advance its
// timestamp if the incoming one is later. Otherwise the larger magnitude
// wins. Callers hold the lock.
func (t *Tracker) merge(incoming model.HistoryEntry) bool {
	existing, ok := t.entries[incoming.Symbol]
	if !ok {
		t.entries[incoming.Symbol] = incoming
		return true
	}

	existingMag := math.Abs(existing.SpreadPercent)
	incomingMag := math.Abs(incoming.SpreadPercent)
	if round2(existingMag) == round2(incomingMag) {
		if incoming.Timestamp.After(existing.Timestamp) {
			existing.Timestamp = incoming.Timestamp
			t.entries[incoming.Symbol] = existing
			return true
		}
		return false
	}
	if incomingMag > existingMag {
		t.entries[incoming.Symbol] = incoming
		return true
	}
	return false
}

// Today returns the current day's entries, ranked by spread magnitude with
// ties broken by symbol.
func (t *Tracker) Today() []model.HistoryEntry {
	t.mu.Lock()
	t.dropStale()
	out := make([]model.HistoryEntry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		mi, mj := math.Abs(out[i].SpreadPercent), math.Abs(out[j].SpreadPercent)
		if mi != mj {
			return mi > mj
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// DailyProfit estimates the theoretical net profit for the day: per symbol,
// aggregate the observed spread magnitudes with the configured method,
// subtract the round-trip transaction cost, floor at zero, then average
// across symbols. No admitted entries means zero, not an error.
func (t *Tracker) DailyProfit(set config.Settings) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cost := set.RoundTripCost()
	var total float64
	var symbols int
	for _, e := range t.entries {
		mag := math.Abs(e.SpreadPercent)
		if mag > set.OutlierPct {
			continue
		}
		// One sample per symbol under the current merge policy; the
		// aggregation method matters only if the tracker is extended to
		// retain multiple samples.
		base := aggregate([]float64{mag}, set.ProfitMethod)
		total += math.Max(0, base-cost)
		symbols++
	}
	if symbols == 0 {
		return 0
	}
	return total / float64(symbols)
}

// aggregate reduces an ascending-sorted magnitude list with the configured
// method; unknown methods fall back to the maximum.
func aggregate(sorted []float64, method string) float64 {
	n := len(sorted)
	switch method {
	case "median":
		return sorted[n/2]
	case "p95":
		i := int(float64(n) * 0.95)
		if i >= n {
			i = n - 1
		}
		return sorted[i]
	case "average":
		var sum float64
		for _, v := range sorted {
			sum += v
		}
		return sum / float64(n)
	default:
		return sorted[n-1]
	}
}

// dropStale discards entries from before local midnight. Callers hold the
// lock.
func (t *Tracker) dropStale() {
	start := startOfDay(t.now())
	for sym, e := range t.entries {
		if e.Timestamp.Before(start) {
			delete(t.entries, sym)
		}
	}
}

func startOfDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
