package exchange

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"arbmon/internal/model"
)

const (
	bitgetSpotTickersURL = "https://api.bitget.com/api/v2/spot/market/tickers"
	bitgetSpotTradeURL   = "https://www.bitget.com/spot/"
)

type bitgetTicker struct {
	Symbol     string `json:"symbol"`
	LastPr     string `json:"lastPr"`
	UsdtVolume string `json:"usdtVolume"`
}

type bitgetTickersResponse struct {
	Code string         `json:"code"`
	Msg  string         `json:"msg"`
	Data []bitgetTicker `json:"data"`
}

// Bitget uses separator-free native identifiers ("BTCUSDT"). Spot-only here.
type Bitget struct {
	http *resty.Client
}

func NewBitget(http *resty.Client) *Bitget {
	return &Bitget{http: http}
}

func (b *Bitget) Name() string { return "Bitget" }

func (b *Bitget) SpotSymbol(sym model.Symbol) string {
	return sym.Base + sym.Quote
}

func (b *Bitget) FuturesSymbol(sym model.Symbol) (string, bool) {
	return "", false
}

func (b *Bitget) SpotURL(sym model.Symbol) string {
	return bitgetSpotTradeURL + sym.Base + sym.Quote
}

func (b *Bitget) FuturesURL(sym model.Symbol) (string, bool) {
	return "", false
}

func (b *Bitget) FundingSettlementsPerDay() int { return 0 }

func (b *Bitget) FetchBook(ctx context.Context) (*Book, error) {
	var resp bitgetTickersResponse
	if err := getJSON(ctx, b.http, bitgetSpotTickersURL, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("bitget tickers: code %s: %s", resp.Code, resp.Msg)
	}
	return buildBitgetBook(resp.Data), nil
}

func buildBitgetBook(tickers []bitgetTicker) *Book {
	book := &Book{Spot: make(map[string]Ticker, len(tickers))}
	for _, t := range tickers {
		book.Spot[t.Symbol] = Ticker{
			Price:       parseFloat(t.LastPr),
			QuoteVolume: parseFloat(t.UsdtVolume),
		}
	}
	return book
}
