package exchange

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"arbmon/internal/model"
)

const (
	bybitSpotTickersURL   = "https://api.bybit.com/v5/market/tickers?category=spot"
	bybitLinearTickersURL = "https://api.bybit.com/v5/market/tickers?category=linear"
	bybitSpotTradeURL     = "https://www.bybit.com/en/trade/spot/"
	bybitFuturesTradeURL  = "https://www.bybit.com/trade/usdt/"
	bybitFundingPerDay    = 3
)

type bybitTicker struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	MarkPrice   string `json:"markPrice"`
	IndexPrice  string `json:"indexPrice"`
	FundingRate string `json:"fundingRate"`
	Turnover24h string `json:"turnover24h"`
}

type bybitTickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string        `json:"category"`
		List     []bybitTicker `json:"list"`
	} `json:"result"`
}

// Bybit serves spot and USDT-perpetual tickers from one v5 endpoint family,
// switched by category. Native identifiers have no separator ("BTCUSDT").
type Bybit struct {
	http *resty.Client
}

func NewBybit(http *resty.Client) *Bybit {
	return &Bybit{http: http}
}

func (b *Bybit) Name() string { return "Bybit" }

func (b *Bybit) SpotSymbol(sym model.Symbol) string {
	return sym.Base + sym.Quote
}

func (b *Bybit) FuturesSymbol(sym model.Symbol) (string, bool) {
	return sym.Base + sym.Quote, true
}

func (b *Bybit) SpotURL(sym model.Symbol) string {
	return bybitSpotTradeURL + sym.Base + "/" + sym.Quote
}

func (b *Bybit) FuturesURL(sym model.Symbol) (string, bool) {
	return bybitFuturesTradeURL + sym.Base + sym.Quote, true
}

func (b *Bybit) FundingSettlementsPerDay() int { return bybitFundingPerDay }

func (b *Bybit) FetchBook(ctx context.Context) (*Book, error) {
	var spot, linear bybitTickersResponse
	if err := getJSON(ctx, b.http, bybitSpotTickersURL, &spot); err != nil {
		return nil, err
	}
	if spot.RetCode != 0 {
		return nil, fmt.Errorf("bybit spot tickers: retCode %d: %s", spot.RetCode, spot.RetMsg)
	}
	if err := getJSON(ctx, b.http, bybitLinearTickersURL, &linear); err != nil {
		return nil, err
	}
	if linear.RetCode != 0 {
		return nil, fmt.Errorf("bybit linear tickers: retCode %d: %s", linear.RetCode, linear.RetMsg)
	}
	return buildBybitBook(spot.Result.List, linear.Result.List), nil
}

func buildBybitBook(spot, linear []bybitTicker) *Book {
	book := &Book{
		Spot:    make(map[string]Ticker, len(spot)),
		Futures: make(map[string]FuturesTicker, len(linear)),
	}
	for _, t := range spot {
		book.Spot[t.Symbol] = Ticker{
			Price:       parseFloat(t.LastPrice),
			QuoteVolume: parseFloat(t.Turnover24h),
		}
	}
	for _, t := range linear {
		ft := FuturesTicker{
			Mark:        parseFloat(t.MarkPrice),
			Index:       parseFloat(t.IndexPrice),
			QuoteVolume: parseFloat(t.Turnover24h),
		}
		if t.FundingRate != "" {
			rate := parseFloat(t.FundingRate) * 100
			ft.FundingRate = &rate
		}
		book.Futures[t.Symbol] = ft
	}
	return book
}
