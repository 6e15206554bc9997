// Package poller drives the recurring poll cycle: fetch all venue books
// concurrently, aggregate, admit history, publish one snapshot.
package poller

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"arbmon/internal/arbitrage"
	"arbmon/internal/config"
	"arbmon/internal/database"
	"arbmon/internal/exchange"
	"arbmon/internal/history"
	"arbmon/internal/model"
)

const alertCooldown = time.Minute

// Options configures the poll cadence.
type Options struct {
	Interval     time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
}

// Poller owns the in-memory opportunity state. Cycles never overlap: a
// trigger that fires while a cycle is still running is skipped. Every started
// cycle is tagged with a sequence number, so if a later cycle ever starts
// while an earlier one is still unwinding, the earlier one's late results are
// dropped instead of overwriting the newer snapshot.
type Poller struct {
	logger     *slog.Logger
	venues     []exchange.Client
	agg        *arbitrage.Aggregator
	tracker    *history.Tracker
	repo       database.Repository
	settingsFn func() config.Settings
	opts       Options
	onUpdate   func(model.Snapshot)

	mu       sync.RWMutex
	snapshot model.Snapshot

	running atomic.Bool
	seq     atomic.Uint64

	alertMu   sync.Mutex
	alertLast map[string]time.Time
}

func New(logger *slog.Logger, venues []exchange.Client, agg *arbitrage.Aggregator, tracker *history.Tracker, repo database.Repository, settingsFn func() config.Settings, opts Options) *Poller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Poller{
		logger:     logger,
		venues:     venues,
		agg:        agg,
		tracker:    tracker,
		repo:       repo,
		settingsFn: settingsFn,
		opts:       opts,
		alertLast:  make(map[string]time.Time),
	}
}

// OnUpdate registers a callback invoked with each published snapshot. Must be
// set before Run.
func (p *Poller) OnUpdate(fn func(model.Snapshot)) {
	p.onUpdate = fn
}

// Snapshot returns the latest published cycle result.
func (p *Poller) Snapshot() model.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Run polls until the context is cancelled. The first cycle starts
// immediately. No error from a cycle stops the timer.
func (p *Poller) Run(ctx context.Context) {
	p.trigger(ctx)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.trigger(ctx)
		}
	}
}

func (p *Poller) trigger(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("previous poll cycle still running, skipping trigger")
		return
	}
	// The sequence advances only when a cycle actually starts. A skipped
	// trigger ran nothing, so it must not invalidate the in-flight cycle.
	seq := p.seq.Add(1)
	go func() {
		defer p.running.Store(false)
		p.runCycle(ctx, seq)
	}()
}

func (p *Poller) runCycle(ctx context.Context, seq uint64) {
	set := p.settingsFn()
	now := p.opts.Now()

	fctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	books := p.fetchBooks(fctx)
	cancel()

	// A newer cycle started while this one was fetching; this data is stale.
	if seq != p.seq.Load() {
		p.logger.Warn("dropping stale poll cycle", "seq", seq)
		return
	}

	if len(books) == 0 {
		p.logger.Error("all venue fetches failed, keeping previous data", "seq", seq)
		p.mu.Lock()
		p.snapshot.Connected = false
		snap := p.snapshot
		p.mu.Unlock()
		p.publish(snap)
		return
	}

	res := p.agg.Collect(books, set, now)

	if p.tracker.Admit(p.historyCandidates(res, now), set) && p.repo != nil {
		// Durability is best-effort: in-memory history stays correct even if
		// the store is unavailable.
		if err := p.repo.SaveHistory(ctx, p.tracker.Today()); err != nil {
			p.logger.Warn("failed to persist history", "error", err)
		}
	}

	stats := res.Stats
	stats.DailyProfit = p.tracker.DailyProfit(set)

	snap := model.Snapshot{
		SpotFutures:   res.SpotFutures,
		InterExchange: res.InterExchange,
		Stats:         stats,
		Connected:     true,
		Timestamp:     now,
	}
	p.mu.Lock()
	p.snapshot = snap
	p.mu.Unlock()

	p.checkAlerts(res.SpotFutures, set, now)
	p.publish(snap)

	p.logger.Info("poll cycle complete",
		"seq", seq,
		"venues", len(books),
		"spotFutures", len(res.SpotFutures),
		"interExchange", len(res.InterExchange),
	)
}

// fetchBooks retrieves every venue's ticker book concurrently. A venue
// failure is isolated: logged, excluded from the cycle, never propagated.
func (p *Poller) fetchBooks(ctx context.Context) map[string]*exchange.Book {
	var mu sync.Mutex
	books := make(map[string]*exchange.Book, len(p.venues))

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range p.venues {
		g.Go(func() error {
			book, err := v.FetchBook(gctx)
			if err != nil {
				p.logger.Warn("venue fetch failed", "venue", v.Name(), "error", err)
				return nil
			}
			mu.Lock()
			books[v.Name()] = book
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return books
}

func (p *Poller) historyCandidates(res arbitrage.Result, now time.Time) []model.HistoryEntry {
	entries := make([]model.HistoryEntry, 0, len(res.SpotFutures))
	for _, opp := range res.SpotFutures {
		entries = append(entries, model.HistoryEntry{
			ID:            uuid.NewString(),
			Symbol:        opp.Symbol,
			Name:          opp.Name,
			Timestamp:     now,
			SpreadPercent: opp.SpreadPercent,
			SpotPrice:     opp.SpotPrice,
			FuturesPrice:  opp.FuturesPrice,
			Exchange:      opp.Exchange,
		})
	}
	return entries
}

// checkAlerts logs an alert event per (symbol, venue) at most once per
// cooldown window.
func (p *Poller) checkAlerts(opps []model.SpotFuturesOpportunity, set config.Settings, now time.Time) {
	if !set.EnableAlerts {
		return
	}
	p.alertMu.Lock()
	defer p.alertMu.Unlock()
	for _, opp := range opps {
		if math.Abs(opp.SpreadPercent) < set.AlertThreshold {
			continue
		}
		key := opp.Symbol + "_" + opp.Exchange
		if last, ok := p.alertLast[key]; ok && now.Sub(last) < alertCooldown {
			continue
		}
		p.alertLast[key] = now
		p.logger.Info("arbitrage alert",
			"symbol", opp.Symbol,
			"exchange", opp.Exchange,
			"spread", opp.SpreadPercent,
		)
	}
}

func (p *Poller) publish(snap model.Snapshot) {
	if p.onUpdate != nil {
		p.onUpdate(snap)
	}
}
