package spread

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"arbmon/internal/model"
)

var testParams = Params{OutlierPct: 8.0, NoiseFloorPct: 0.05}

func spotPoint(venue string, price float64) *model.PricePoint {
	return &model.PricePoint{Venue: venue, Kind: model.Spot, Price: price, VolumeQuote: 1000}
}

func futuresPoint(venue string, price float64) *model.PricePoint {
	return &model.PricePoint{Venue: venue, Kind: model.Futures, Price: price, VolumeQuote: 1000}
}

func TestSameVenue(t *testing.T) {
	sym := model.Symbol{Base: "BTC", Quote: "USDT"}
	now := time.Now()

	t.Run("basis spread uses spot as reference", func(t *testing.T) {
		q := VenueQuotes{Venue: "Binance", Spot: spotPoint("Binance", 50000), Futures: futuresPoint("Binance", 50250)}
		obs, ok := SameVenue(sym, q, now, testParams)
		assert.True(t, ok)
		assert.Equal(t, model.SameVenueSpotFutures, obs.Kind)
		assert.InDelta(t, 0.50, obs.SpreadPercent, 1e-9)
		assert.Equal(t, model.Spot, obs.LegA.Kind)
	})

	t.Run("sign follows futures minus spot", func(t *testing.T) {
		q := VenueQuotes{Venue: "Binance", Spot: spotPoint("Binance", 50000), Futures: futuresPoint("Binance", 49750)}
		obs, ok := SameVenue(sym, q, now, testParams)
		assert.True(t, ok)
		assert.Negative(t, obs.SpreadPercent)
	})

	t.Run("missing leg yields nothing", func(t *testing.T) {
		_, ok := SameVenue(sym, VenueQuotes{Venue: "Binance", Spot: spotPoint("Binance", 50000)}, now, testParams)
		assert.False(t, ok)
	})

	t.Run("outlier spread discarded", func(t *testing.T) {
		q := VenueQuotes{Venue: "Binance", Spot: spotPoint("Binance", 50000), Futures: futuresPoint("Binance", 55500)}
		_, ok := SameVenue(sym, q, now, testParams) // 11% > 8% cutoff
		assert.False(t, ok)
	})

	t.Run("noise below floor discarded", func(t *testing.T) {
		q := VenueQuotes{Venue: "Binance", Spot: spotPoint("Binance", 50000), Futures: futuresPoint("Binance", 50010)}
		_, ok := SameVenue(sym, q, now, testParams) // 0.02% < 0.05% floor
		assert.False(t, ok)
	})

	t.Run("funding rate attached when available", func(t *testing.T) {
		rate := 0.01
		q := VenueQuotes{Venue: "Binance", Spot: spotPoint("Binance", 50000), Futures: futuresPoint("Binance", 50250), FundingRate: &rate}
		obs, ok := SameVenue(sym, q, now, testParams)
		assert.True(t, ok)
		if assert.NotNil(t, obs.FundingRate) {
			assert.Equal(t, 0.01, *obs.FundingRate)
		}
	})
}

func TestInterExchange(t *testing.T) {
	sym := model.Symbol{Base: "BTC", Quote: "USDT"}
	now := time.Now()

	t.Run("buy cheapest sell dearest", func(t *testing.T) {
		quotes := []VenueQuotes{
			{Venue: "Bybit", Spot: spotPoint("Bybit", 50000)},
			{Venue: "MEXC", Spot: spotPoint("MEXC", 50400)},
		}
		obs, ok := InterExchange(sym, quotes, now, testParams)
		assert.True(t, ok)
		assert.Equal(t, model.InterExchangeSpot, obs.Kind)
		assert.Equal(t, "Bybit", obs.LegA.Venue)
		assert.Equal(t, "MEXC", obs.LegB.Venue)
		assert.InDelta(t, 0.80, obs.SpreadPercent, 1e-9)
	})

	t.Run("spread equals max minus min over min", func(t *testing.T) {
		quotes := []VenueQuotes{
			{Venue: "Bybit", Spot: spotPoint("Bybit", 100)},
			{Venue: "OKX", Spot: spotPoint("OKX", 101)},
			{Venue: "MEXC", Spot: spotPoint("MEXC", 102)},
		}
		obs, ok := InterExchange(sym, quotes, now, testParams)
		assert.True(t, ok)
		assert.InDelta(t, (102.0-100.0)/100.0*100, obs.SpreadPercent, 1e-9)
		assert.Positive(t, obs.SpreadPercent)
	})

	t.Run("single venue emits nothing", func(t *testing.T) {
		quotes := []VenueQuotes{{Venue: "Bybit", Spot: spotPoint("Bybit", 50000)}}
		_, ok := InterExchange(sym, quotes, now, testParams)
		assert.False(t, ok)
	})

	t.Run("futures-only venues do not count as spot quotes", func(t *testing.T) {
		quotes := []VenueQuotes{
			{Venue: "Bybit", Spot: spotPoint("Bybit", 50000)},
			{Venue: "Binance", Futures: futuresPoint("Binance", 50400)},
		}
		_, ok := InterExchange(sym, quotes, now, testParams)
		assert.False(t, ok)
	})
}

func TestCrossVenue(t *testing.T) {
	sym := model.Symbol{Base: "ETH", Quote: "USDT"}
	now := time.Now()

	t.Run("min spot versus max futures across venues", func(t *testing.T) {
		quotes := []VenueQuotes{
			{Venue: "MEXC", Spot: spotPoint("MEXC", 3000)},
			{Venue: "Binance", Spot: spotPoint("Binance", 3010), Futures: futuresPoint("Binance", 3020)},
		}
		obs, ok := CrossVenue(sym, quotes, now, testParams)
		assert.True(t, ok)
		assert.Equal(t, model.CrossVenueSpotFutures, obs.Kind)
		assert.Equal(t, "MEXC", obs.LegA.Venue)
		assert.Equal(t, "Binance", obs.LegB.Venue)
		assert.InDelta(t, (3020.0-3000.0)/3000.0*100, obs.SpreadPercent, 1e-9)
	})

	t.Run("same venue for both legs emits nothing", func(t *testing.T) {
		quotes := []VenueQuotes{
			{Venue: "Binance", Spot: spotPoint("Binance", 3000), Futures: futuresPoint("Binance", 3020)},
		}
		_, ok := CrossVenue(sym, quotes, now, testParams)
		assert.False(t, ok)
	})
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(0.5, testParams))
	assert.True(t, Valid(-0.5, testParams))
	assert.True(t, Valid(8.0, testParams))
	assert.False(t, Valid(8.01, testParams))
	assert.False(t, Valid(0.05, testParams))
	assert.False(t, Valid(0.0, testParams))
}
