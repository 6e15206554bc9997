package exchange

import (
	"context"

	"github.com/go-resty/resty/v2"

	"arbmon/internal/model"
)

const (
	binanceSpotPriceURL  = "https://api.binance.com/api/v3/ticker/price"
	binanceSpot24hURL    = "https://api.binance.com/api/v3/ticker/24hr"
	binancePremiumURL    = "https://fapi.binance.com/fapi/v1/premiumIndex"
	binanceFundingURL    = "https://fapi.binance.com/fapi/v1/fundingRate?limit=1000"
	binanceSpotTradeURL  = "https://www.binance.com/en/trade/"
	binanceFuturesTrade  = "https://www.binance.com/en/futures/"
	binanceFundingPerDay = 3 // 8h settlement cycle
)

type binanceSpotPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

type binanceTicker24h struct {
	Symbol      string `json:"symbol"`
	QuoteVolume string `json:"quoteVolume"`
}

type binancePremiumIndex struct {
	Symbol     string `json:"symbol"`
	MarkPrice  string `json:"markPrice"`
	IndexPrice string `json:"indexPrice"`
}

type binanceFundingRate struct {
	Symbol      string `json:"symbol"`
	FundingRate string `json:"fundingRate"`
	FundingTime int64  `json:"fundingTime"`
}

// Binance lists both spot and USD-M perpetual markets. Native identifiers
// concatenate base and quote with no separator ("BTCUSDT") on both.
type Binance struct {
	http *resty.Client
}

func NewBinance(http *resty.Client) *Binance {
	return &Binance{http: http}
}

func (b *Binance) Name() string { return "Binance" }

func (b *Binance) SpotSymbol(sym model.Symbol) string {
	return sym.Base + sym.Quote
}

func (b *Binance) FuturesSymbol(sym model.Symbol) (string, bool) {
	return sym.Base + sym.Quote, true
}

func (b *Binance) SpotURL(sym model.Symbol) string {
	return binanceSpotTradeURL + sym.Base + "_" + sym.Quote
}

func (b *Binance) FuturesURL(sym model.Symbol) (string, bool) {
	return binanceFuturesTrade + sym.Base + sym.Quote, true
}

func (b *Binance) FundingSettlementsPerDay() int { return binanceFundingPerDay }

func (b *Binance) FetchBook(ctx context.Context) (*Book, error) {
	var (
		spot    []binanceSpotPrice
		stats   []binanceTicker24h
		premium []binancePremiumIndex
		funding []binanceFundingRate
	)
	if err := getJSON(ctx, b.http, binanceSpotPriceURL, &spot); err != nil {
		return nil, err
	}
	if err := getJSON(ctx, b.http, binanceSpot24hURL, &stats); err != nil {
		return nil, err
	}
	if err := getJSON(ctx, b.http, binancePremiumURL, &premium); err != nil {
		return nil, err
	}
	if err := getJSON(ctx, b.http, binanceFundingURL, &funding); err != nil {
		return nil, err
	}
	return buildBinanceBook(spot, stats, premium, funding), nil
}

func buildBinanceBook(spot []binanceSpotPrice, stats []binanceTicker24h, premium []binancePremiumIndex, funding []binanceFundingRate) *Book {
	volumes := make(map[string]float64, len(stats))
	for _, s := range stats {
		volumes[s.Symbol] = parseFloat(s.QuoteVolume)
	}

	book := &Book{
		Spot:    make(map[string]Ticker, len(spot)),
		Futures: make(map[string]FuturesTicker, len(premium)),
	}
	for _, p := range spot {
		book.Spot[p.Symbol] = Ticker{
			Price:       parseFloat(p.Price),
			QuoteVolume: volumes[p.Symbol],
		}
	}

	rates := make(map[string]float64, len(funding))
	for _, f := range funding {
		rates[f.Symbol] = parseFloat(f.FundingRate) * 100 // fraction to percent
	}
	for _, p := range premium {
		t := FuturesTicker{
			Mark:        parseFloat(p.MarkPrice),
			Index:       parseFloat(p.IndexPrice),
			QuoteVolume: volumes[p.Symbol],
		}
		if rate, ok := rates[p.Symbol]; ok {
			r := rate
			t.FundingRate = &r
		}
		book.Futures[p.Symbol] = t
	}
	return book
}
