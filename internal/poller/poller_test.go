package poller

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arbmon/internal/arbitrage"
	"arbmon/internal/config"
	"arbmon/internal/database"
	"arbmon/internal/exchange"
	"arbmon/internal/history"
	"arbmon/internal/model"
)

// fakeVenue implements exchange.Client; err simulates a venue outage.
type fakeVenue struct {
	name       string
	hasFutures bool
	book       *exchange.Book
	err        error
}

func (f *fakeVenue) Name() string                     { return f.name }
func (f *fakeVenue) SpotSymbol(s model.Symbol) string { return s.Base + s.Quote }
func (f *fakeVenue) SpotURL(s model.Symbol) string    { return "https://" + f.name + ".test/" + s.Base }
func (f *fakeVenue) FundingSettlementsPerDay() int    { return 0 }

func (f *fakeVenue) FuturesSymbol(s model.Symbol) (string, bool) {
	if !f.hasFutures {
		return "", false
	}
	return s.Base + s.Quote, true
}

func (f *fakeVenue) FuturesURL(s model.Symbol) (string, bool) {
	if !f.hasFutures {
		return "", false
	}
	return "https://" + f.name + ".test/futures/" + s.Base, true
}

func (f *fakeVenue) FetchBook(ctx context.Context) (*exchange.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.book, nil
}

func newTestPoller(t *testing.T, venues []exchange.Client, repo database.Repository) *Poller {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	symbols := []model.Symbol{{Base: "BTC", Quote: "USDT"}}
	agg := arbitrage.NewAggregator(logger, venues, symbols)
	tracker := history.NewTracker(time.Now)
	return New(logger, venues, agg, tracker, repo, config.DefaultSettings, Options{
		Interval:     time.Hour,
		FetchTimeout: time.Second,
	})
}

func healthyVenue() *fakeVenue {
	return &fakeVenue{
		name:       "Binance",
		hasFutures: true,
		book: &exchange.Book{
			Spot:    map[string]exchange.Ticker{"BTCUSDT": {Price: 50000, QuoteVolume: 1e9}},
			Futures: map[string]exchange.FuturesTicker{"BTCUSDT": {Mark: 50400}},
		},
	}
}

func TestRunCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("venue failure is isolated", func(t *testing.T) {
		down := &fakeVenue{name: "MEXC", err: errors.New("connection refused")}
		p := newTestPoller(t, []exchange.Client{healthyVenue(), down}, database.NewMemoryRepository())

		p.runCycle(ctx, p.seq.Add(1))

		snap := p.Snapshot()
		assert.True(t, snap.Connected)
		if assert.Len(t, snap.SpotFutures, 1) {
			assert.InDelta(t, 0.8, snap.SpotFutures[0].SpreadPercent, 1e-9)
		}
	})

	t.Run("all venues down keeps previous data", func(t *testing.T) {
		venue := healthyVenue()
		p := newTestPoller(t, []exchange.Client{venue}, database.NewMemoryRepository())

		p.runCycle(ctx, p.seq.Add(1))
		assert.True(t, p.Snapshot().Connected)

		venue.err = errors.New("total outage")
		p.runCycle(ctx, p.seq.Add(1))

		snap := p.Snapshot()
		assert.False(t, snap.Connected)
		assert.Len(t, snap.SpotFutures, 1, "stale data stays displayed")
	})

	t.Run("skipped trigger does not invalidate the running cycle", func(t *testing.T) {
		p := newTestPoller(t, []exchange.Client{healthyVenue()}, database.NewMemoryRepository())

		seq := p.seq.Add(1)
		p.running.Store(true) // that cycle is still in flight
		p.trigger(ctx)        // skipped: must not advance the sequence
		p.running.Store(false)
		assert.Equal(t, seq, p.seq.Load())

		p.runCycle(ctx, seq)

		snap := p.Snapshot()
		assert.True(t, snap.Connected)
		assert.Len(t, snap.SpotFutures, 1, "the only cycle that ran produced data")
	})

	t.Run("late result of a superseded cycle is dropped", func(t *testing.T) {
		p := newTestPoller(t, []exchange.Client{healthyVenue()}, database.NewMemoryRepository())

		stale := p.seq.Add(1)
		p.seq.Add(1) // a newer cycle started while this one was in flight
		p.runCycle(ctx, stale)

		assert.Empty(t, p.Snapshot().SpotFutures)
		assert.False(t, p.Snapshot().Connected)
	})

	t.Run("admitted history is persisted", func(t *testing.T) {
		repo := database.NewMemoryRepository()
		p := newTestPoller(t, []exchange.Client{healthyVenue()}, repo)

		p.runCycle(ctx, p.seq.Add(1))

		saved, err := repo.LoadHistory(ctx)
		assert.NoError(t, err)
		if assert.Len(t, saved, 1) {
			assert.Equal(t, "BTC", saved[0].Symbol)
			assert.InDelta(t, 0.8, saved[0].SpreadPercent, 1e-9)
		}
	})

	t.Run("snapshot carries daily profit", func(t *testing.T) {
		p := newTestPoller(t, []exchange.Client{healthyVenue()}, database.NewMemoryRepository())
		p.runCycle(ctx, p.seq.Add(1))
		// 0.8% best spread minus 0.3% round-trip cost.
		assert.InDelta(t, 0.5, p.Snapshot().Stats.DailyProfit, 1e-9)
	})
}

func TestPublishOnUpdate(t *testing.T) {
	p := newTestPoller(t, []exchange.Client{healthyVenue()}, database.NewMemoryRepository())

	var got []model.Snapshot
	p.OnUpdate(func(s model.Snapshot) { got = append(got, s) })
	p.runCycle(context.Background(), p.seq.Add(1))

	if assert.Len(t, got, 1) {
		assert.True(t, got[0].Connected)
	}
}
