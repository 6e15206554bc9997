package arbitrage

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"arbmon/internal/config"
	"arbmon/internal/exchange"
	"arbmon/internal/model"
	"arbmon/internal/spread"
)

// Aggregator runs the spread engine across the full symbol and venue sets and
// produces the two ranked opportunity collections served to the dashboard.
type Aggregator struct {
	logger  *slog.Logger
	venues  []exchange.Client
	byName  map[string]exchange.Client
	symbols []model.Symbol
}

// Result is the output of one aggregation pass. Observations carries every
// validated spread observation of the cycle, before display-threshold
// filtering; the history tracker admits from it.
type Result struct {
	SpotFutures   []model.SpotFuturesOpportunity
	InterExchange []model.InterExchangeOpportunity
	Observations  []model.SpreadObservation
	Stats         model.Stats
}

// NewAggregator creates a new Aggregator over a fixed venue registry and
// symbol watchlist.
func NewAggregator(logger *slog.Logger, venues []exchange.Client, symbols []model.Symbol) *Aggregator {
	byName := make(map[string]exchange.Client, len(venues))
	for _, v := range venues {
		byName[v.Name()] = v
	}
	return &Aggregator{
		logger:  logger,
		venues:  venues,
		byName:  byName,
		symbols: symbols,
	}
}

// Collect runs the engine for every watched symbol against one cycle's venue
// books. For a fixed input set the output ordering is fully determined:
// descending by spread magnitude, ties broken by symbol lexical order.
func (a *Aggregator) Collect(books map[string]*exchange.Book, set config.Settings, now time.Time) Result {
	params := spread.Params{
		OutlierPct:    set.OutlierPct,
		NoiseFloorPct: set.NoiseFloorPct,
	}

	var res Result
	for _, sym := range a.symbols {
		quotes := a.venueQuotes(books, sym)
		res.Observations = append(res.Observations, spread.Observe(sym, quotes, now, params)...)
	}

	for _, obs := range res.Observations {
		switch obs.Kind {
		case model.SameVenueSpotFutures, model.CrossVenueSpotFutures:
			if math.Abs(obs.SpreadPercent) > set.Threshold {
				res.SpotFutures = append(res.SpotFutures, a.spotFuturesOpportunity(obs))
			}
		case model.InterExchangeSpot:
			if math.Abs(obs.SpreadPercent) > set.InterExchangeThreshold {
				res.InterExchange = append(res.InterExchange, a.interExchangeOpportunity(obs))
			}
		}
	}

	sort.SliceStable(res.SpotFutures, func(i, j int) bool {
		mi, mj := math.Abs(res.SpotFutures[i].SpreadPercent), math.Abs(res.SpotFutures[j].SpreadPercent)
		if mi != mj {
			return mi > mj
		}
		return res.SpotFutures[i].Symbol < res.SpotFutures[j].Symbol
	})
	sort.SliceStable(res.InterExchange, func(i, j int) bool {
		mi, mj := math.Abs(res.InterExchange[i].SpreadPercent), math.Abs(res.InterExchange[j].SpreadPercent)
		if mi != mj {
			return mi > mj
		}
		return res.InterExchange[i].Symbol < res.InterExchange[j].Symbol
	})

	res.Stats = a.stats(res)
	return res
}

// venueQuotes gathers one symbol's spot and futures quotes from every venue
// with a book this cycle. Absent quotes are skipped, never an error.
func (a *Aggregator) venueQuotes(books map[string]*exchange.Book, sym model.Symbol) []spread.VenueQuotes {
	quotes := make([]spread.VenueQuotes, 0, len(a.venues))
	for _, v := range a.venues {
		book := books[v.Name()]
		if book == nil {
			continue
		}
		vq := spread.VenueQuotes{Venue: v.Name()}
		if pp, ok := exchange.SpotQuote(v, book, sym); ok {
			spot := pp
			vq.Spot = &spot
		}
		if pp, rate, ok := exchange.FuturesQuote(v, book, sym); ok {
			fut := pp
			vq.Futures = &fut
			vq.FundingRate = rate
		}
		if vq.Spot != nil || vq.Futures != nil {
			quotes = append(quotes, vq)
		}
	}
	return quotes
}

func (a *Aggregator) spotFuturesOpportunity(obs model.SpreadObservation) model.SpotFuturesOpportunity {
	opp := model.SpotFuturesOpportunity{
		Symbol:        obs.Symbol.Base,
		Name:          displayName(obs.Symbol.Base),
		Exchange:      obs.LegB.Venue,
		SpotPrice:     obs.LegA.Price,
		FuturesPrice:  obs.LegB.Price,
		SpreadPercent: obs.SpreadPercent,
		FundingRate:   obs.FundingRate,
		Volume24h:     formatVolume(obs.LegA.VolumeQuote),
	}
	if obs.Kind == model.CrossVenueSpotFutures {
		opp.SpotExchange = obs.LegA.Venue
	}
	if spotVenue, ok := a.byName[obs.LegA.Venue]; ok {
		opp.SpotURL = spotVenue.SpotURL(obs.Symbol)
	}
	if futVenue, ok := a.byName[obs.LegB.Venue]; ok {
		if url, ok := futVenue.FuturesURL(obs.Symbol); ok {
			opp.FuturesURL = url
		}
	}
	return opp
}

func (a *Aggregator) interExchangeOpportunity(obs model.SpreadObservation) model.InterExchangeOpportunity {
	opp := model.InterExchangeOpportunity{
		Symbol:        obs.Symbol.Base,
		Name:          displayName(obs.Symbol.Base),
		BuyExchange:   obs.LegA.Venue,
		SellExchange:  obs.LegB.Venue,
		BuyPrice:      obs.LegA.Price,
		SellPrice:     obs.LegB.Price,
		SpreadPercent: obs.SpreadPercent,
		BuyVolume:     formatVolume(obs.LegA.VolumeQuote),
		SellVolume:    formatVolume(obs.LegB.VolumeQuote),
	}
	if v, ok := a.byName[obs.LegA.Venue]; ok {
		opp.BuySpotURL = v.SpotURL(obs.Symbol)
	}
	if v, ok := a.byName[obs.LegB.Venue]; ok {
		opp.SellSpotURL = v.SpotURL(obs.Symbol)
	}
	return opp
}

// stats summarizes the cycle. Spread aggregates cover every validated
// spot-futures observation, not just the ones above the display threshold.
func (a *Aggregator) stats(res Result) model.Stats {
	st := model.Stats{
		ActiveOpportunities: len(res.SpotFutures),
		ActiveInterExchange: len(res.InterExchange),
	}
	var sum float64
	var count int
	for _, obs := range res.Observations {
		if obs.Kind == model.InterExchangeSpot {
			continue
		}
		mag := math.Abs(obs.SpreadPercent)
		if mag > st.MaxSpread {
			st.MaxSpread = mag
		}
		sum += mag
		count++
	}
	st.TotalPairs = count
	if count > 0 {
		st.AvgSpread = sum / float64(count)
	}
	return st
}

// formatVolume renders a 24h quote volume the way the dashboard displays it.
func formatVolume(v float64) string {
	switch {
	case v > 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v > 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	default:
		return fmt.Sprintf("%.1fK", v/1e3)
	}
}
