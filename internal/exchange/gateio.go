package exchange

import (
	"context"

	"github.com/go-resty/resty/v2"

	"arbmon/internal/model"
)

const (
	gateioSpotTickersURL = "https://api.gateio.ws/api/v4/spot/tickers"
	gateioSpotTradeURL   = "https://www.gate.io/trade/"
)

type gateioTicker struct {
	CurrencyPair string `json:"currency_pair"`
	Last         string `json:"last"`
	QuoteVolume  string `json:"quote_volume"`
}

// Gateio formats native identifiers with an underscore before the quote
// currency ("BTC_USDT"). Spot-only here.
type Gateio struct {
	http *resty.Client
}

func NewGateio(http *resty.Client) *Gateio {
	return &Gateio{http: http}
}

func (g *Gateio) Name() string { return "Gate.io" }

func (g *Gateio) SpotSymbol(sym model.Symbol) string {
	return sym.Base + "_" + sym.Quote
}

func (g *Gateio) FuturesSymbol(sym model.Symbol) (string, bool) {
	return "", false
}

func (g *Gateio) SpotURL(sym model.Symbol) string {
	return gateioSpotTradeURL + sym.Base + "_" + sym.Quote
}

func (g *Gateio) FuturesURL(sym model.Symbol) (string, bool) {
	return "", false
}

func (g *Gateio) FundingSettlementsPerDay() int { return 0 }

func (g *Gateio) FetchBook(ctx context.Context) (*Book, error) {
	var tickers []gateioTicker
	if err := getJSON(ctx, g.http, gateioSpotTickersURL, &tickers); err != nil {
		return nil, err
	}
	return buildGateioBook(tickers), nil
}

func buildGateioBook(tickers []gateioTicker) *Book {
	book := &Book{Spot: make(map[string]Ticker, len(tickers))}
	for _, t := range tickers {
		book.Spot[t.CurrencyPair] = Ticker{
			Price:       parseFloat(t.Last),
			QuoteVolume: parseFloat(t.QuoteVolume),
		}
	}
	return book
}
