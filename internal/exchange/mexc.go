package exchange

import (
	"context"

	"github.com/go-resty/resty/v2"

	"arbmon/internal/model"
)

const (
	mexcSpotPriceURL = "https://api.mexc.com/api/v3/ticker/price"
	mexcSpot24hURL   = "https://api.mexc.com/api/v3/ticker/24hr"
	mexcSpotTradeURL = "https://www.mexc.com/exchange/"
)

type mexcSpotPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type mexcTicker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

// Mexc exposes a Binance-shaped spot API but no comparable public perpetual
// ticker list, so it participates as a spot-only venue.
type Mexc struct {
	http *resty.Client
}

func NewMexc(http *resty.Client) *Mexc {
	return &Mexc{http: http}
}

func (m *Mexc) Name() string { return "MEXC" }

func (m *Mexc) SpotSymbol(sym model.Symbol) string {
	return sym.Base + sym.Quote
}

func (m *Mexc) FuturesSymbol(sym model.Symbol) (string, bool) {
	return "", false
}

func (m *Mexc) SpotURL(sym model.Symbol) string {
	return mexcSpotTradeURL + sym.Base + "_" + sym.Quote
}

func (m *Mexc) FuturesURL(sym model.Symbol) (string, bool) {
	return "", false
}

func (m *Mexc) FundingSettlementsPerDay() int { return 0 }

func (m *Mexc) FetchBook(ctx context.Context) (*Book, error) {
	var (
		spot  []mexcSpotPrice
		stats []mexcTicker24h
	)
	if err := getJSON(ctx, m.http, mexcSpotPriceURL, &spot); err != nil {
		return nil, err
	}
	if err := getJSON(ctx, m.http, mexcSpot24hURL, &stats); err != nil {
		return nil, err
	}
	return buildMexcBook(spot, stats), nil
}

func buildMexcBook(spot []mexcSpotPrice, stats []mexcTicker24h) *Book {
	volumes := make(map[string]float64, len(stats))
	for _, s := range stats {
		volumes[s.Symbol] = parseFloat(s.QuoteVolume)
	}
	book := &Book{Spot: make(map[string]Ticker, len(spot))}
	for _, p := range spot {
		book.Spot[p.Symbol] = Ticker{
			Price:       parseFloat(p.Price),
			QuoteVolume: volumes[p.Symbol],
		}
	}
	return book
}
