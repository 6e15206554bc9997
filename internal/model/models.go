package model

import "time"

// InstrumentKind distinguishes spot and perpetual-futures markets.
type InstrumentKind string

const (
	Spot    InstrumentKind = "spot"
	Futures InstrumentKind = "futures"
)

// Symbol is a trading pair decoupled from any venue's native formatting.
type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) String() string {
	return s.Base + "/" + s.Quote
}

// PricePoint is one venue's quote for one instrument, captured during a
// single poll cycle. It is never mutated; the next cycle replaces it wholesale.
type PricePoint struct {
	Venue       string
	Kind        InstrumentKind
	Price       float64
	VolumeQuote float64
}

// SpreadKind identifies which of the three spread computations produced an
// observation.
type SpreadKind string

const (
	SameVenueSpotFutures  SpreadKind = "same_venue_spot_futures"
	InterExchangeSpot     SpreadKind = "inter_exchange_spot"
	CrossVenueSpotFutures SpreadKind = "cross_venue_spot_futures"
)

// SpreadObservation is the engine's output: two price legs and their signed
// percentage spread relative to legA, the reference (lower-cost) leg.
// For the cross-venue kinds LegA and LegB are always on different venues.
type SpreadObservation struct {
	Symbol        Symbol
	Kind          SpreadKind
	LegA          PricePoint
	LegB          PricePoint
	SpreadPercent float64
	FundingRate   *float64 // percent per settlement, when the venue reports one
	ObservedAt    time.Time
}

// HistoryEntry is the single best (by spread magnitude) admitted observation
// for one symbol on one calendar day.
type HistoryEntry struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Timestamp     time.Time `json:"timestamp"`
	SpreadPercent float64   `json:"spread"`
	SpotPrice     float64   `json:"spotPrice"`
	FuturesPrice  float64   `json:"futuresPrice"`
	Exchange      string    `json:"exchange"`
}

// SpotFuturesOpportunity is a ranked spot-vs-futures opportunity as served to
// the dashboard. Exchange names the futures venue; for cross-venue entries the
// spot leg's venue is carried in SpotExchange.
type SpotFuturesOpportunity struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Exchange      string   `json:"exchange"`
	SpotExchange  string   `json:"spotExchange,omitempty"`
	SpotPrice     float64  `json:"spotPrice"`
	FuturesPrice  float64  `json:"futuresPrice"`
	SpreadPercent float64  `json:"spread"`
	FundingRate   *float64 `json:"fundingRate,omitempty"`
	Volume24h     string   `json:"volume24h"`
	SpotURL       string   `json:"spotUrl,omitempty"`
	FuturesURL    string   `json:"futuresUrl,omitempty"`
}

// InterExchangeOpportunity is a ranked buy-low/sell-high pair across two spot
// venues.
type InterExchangeOpportunity struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	BuyExchange   string  `json:"buyExchange"`
	SellExchange  string  `json:"sellExchange"`
	BuyPrice      float64 `json:"buyPrice"`
	SellPrice     float64 `json:"sellPrice"`
	SpreadPercent float64 `json:"spread"`
	BuyVolume     string  `json:"buyVolume"`
	SellVolume    string  `json:"sellVolume"`
	BuySpotURL    string  `json:"buySpotUrl,omitempty"`
	SellSpotURL   string  `json:"sellSpotUrl,omitempty"`
}

// Stats summarizes one snapshot for the dashboard's stat tiles.
type Stats struct {
	TotalPairs          int     `json:"totalPairs"`
	ActiveOpportunities int     `json:"activeOpportunities"`
	ActiveInterExchange int     `json:"activeInterExchange"`
	MaxSpread           float64 `json:"maxSpread"`
	AvgSpread           float64 `json:"avgSpread"`
	DailyProfit         float64 `json:"dailyProfit"`
}

// Snapshot is the full result of one poll cycle. The poller replaces it
// atomically; readers never see a half-updated cycle.
type Snapshot struct {
	SpotFutures   []SpotFuturesOpportunity   `json:"spotFutures"`
	InterExchange []InterExchangeOpportunity `json:"interExchange"`
	Stats         Stats                      `json:"stats"`
	Connected     bool                       `json:"connected"`
	Timestamp     time.Time                  `json:"timestamp"`
}
