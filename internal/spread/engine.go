// Package spread computes percentage price spreads between venue quotes.
// All functions are pure: one symbol's quotes in, zero or more validated
// observations out.
package spread

import (
	"math"
	"time"

	"arbmon/internal/model"
)

// Params are the validity bounds applied to every computed spread. A spread
// whose magnitude is not in (NoiseFloorPct, OutlierPct] is discarded: stale
// tickers and symbol-mapping mismatches between venues occasionally produce
// implausible spreads that must never reach the ranked output.
type Params struct {
	OutlierPct    float64
	NoiseFloorPct float64
}

// VenueQuotes groups one venue's quotes for a single symbol within one poll
// cycle. Nil legs mean the venue had no valid quote for that instrument.
type VenueQuotes struct {
	Venue       string
	Spot        *model.PricePoint
	Futures     *model.PricePoint
	FundingRate *float64
}

// Percent returns the signed spread of other relative to the reference leg.
func Percent(reference, other float64) float64 {
	return (other - reference) / reference * 100
}

// Valid reports whether a spread magnitude is finite and inside the
// configured bounds.
func Valid(spreadPct float64, p Params) bool {
	mag := math.Abs(spreadPct)
	if math.IsNaN(mag) || math.IsInf(mag, 0) {
		return false
	}
	return mag > p.NoiseFloorPct && mag <= p.OutlierPct
}

// SameVenue computes the spot-vs-futures basis on a single venue. The spot
// leg is the reference.
func SameVenue(sym model.Symbol, q VenueQuotes, now time.Time, p Params) (model.SpreadObservation, bool) {
	if q.Spot == nil || q.Futures == nil {
		return model.SpreadObservation{}, false
	}
	pct := Percent(q.Spot.Price, q.Futures.Price)
	if !Valid(pct, p) {
		return model.SpreadObservation{}, false
	}
	return model.SpreadObservation{
		Symbol:        sym,
		Kind:          model.SameVenueSpotFutures,
		LegA:          *q.Spot,
		LegB:          *q.Futures,
		SpreadPercent: pct,
		FundingRate:   q.FundingRate,
		ObservedAt:    now,
	}, true
}

// InterExchange computes the spread between the cheapest and the most
// expensive spot quote across venues. The cheapest (buy) venue is the
// reference leg. With fewer than two quoted venues nothing is emitted.
func InterExchange(sym model.Symbol, quotes []VenueQuotes, now time.Time, p Params) (model.SpreadObservation, bool) {
	var spots []model.PricePoint
	for _, q := range quotes {
		if q.Spot != nil {
			spots = append(spots, *q.Spot)
		}
	}
	if len(spots) < 2 {
		return model.SpreadObservation{}, false
	}

	low, high := spots[0], spots[0]
	for _, s := range spots[1:] {
		if s.Price < low.Price {
			low = s
		}
		if s.Price > high.Price {
			high = s
		}
	}
	if low.Venue == high.Venue {
		return model.SpreadObservation{}, false
	}

	pct := Percent(low.Price, high.Price)
	if !Valid(pct, p) {
		return model.SpreadObservation{}, false
	}
	return model.SpreadObservation{
		Symbol:        sym,
		Kind:          model.InterExchangeSpot,
		LegA:          low,
		LegB:          high,
		SpreadPercent: pct,
		ObservedAt:    now,
	}, true
}

// CrossVenue computes the spread between the cheapest spot quote and the
// highest futures quote across venues, emitted only when those venues differ.
// The spot leg is the reference.
func CrossVenue(sym model.Symbol, quotes []VenueQuotes, now time.Time, p Params) (model.SpreadObservation, bool) {
	var (
		lowSpot *model.PricePoint
		highFut *model.PricePoint
		funding *float64
	)
	for i := range quotes {
		q := quotes[i]
		if q.Spot != nil && (lowSpot == nil || q.Spot.Price < lowSpot.Price) {
			lowSpot = q.Spot
		}
		if q.Futures != nil && (highFut == nil || q.Futures.Price > highFut.Price) {
			highFut = q.Futures
			funding = q.FundingRate
		}
	}
	if lowSpot == nil || highFut == nil || lowSpot.Venue == highFut.Venue {
		return model.SpreadObservation{}, false
	}

	pct := Percent(lowSpot.Price, highFut.Price)
	if !Valid(pct, p) {
		return model.SpreadObservation{}, false
	}
	return model.SpreadObservation{
		Symbol:        sym,
		Kind:          model.CrossVenueSpotFutures,
		LegA:          *lowSpot,
		LegB:          *highFut,
		SpreadPercent: pct,
		FundingRate:   funding,
		ObservedAt:    now,
	}, true
}

// Observe runs all three computations for one symbol.
func Observe(sym model.Symbol, quotes []VenueQuotes, now time.Time, p Params) []model.SpreadObservation {
	var out []model.SpreadObservation
	for _, q := range quotes {
		if obs, ok := SameVenue(sym, q, now, p); ok {
			out = append(out, obs)
		}
	}
	if obs, ok := InterExchange(sym, quotes, now, p); ok {
		out = append(out, obs)
	}
	if obs, ok := CrossVenue(sym, quotes, now, p); ok {
		out = append(out, obs)
	}
	return out
}
