package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"arbmon/internal/model"
)

const (
	okxSpotTickersURL = "https://www.okx.com/api/v5/market/tickers?instType=SPOT"
	okxSpotTradeURL   = "https://www.okx.com/trade-spot/"
)

type okxTicker struct {
	InstID    string `json:"instId"`
	Last      string `json:"last"`
	VolCcy24h string `json:"volCcy24h"`
}

type okxTickersResponse struct {
	Code string      `json:"code"`
	Msg  string      `json:"msg"`
	Data []okxTicker `json:"data"`
}

// Okx formats native identifiers with a dash before the quote currency
// ("BTC-USDT"). Spot-only here.
type Okx struct {
	http *resty.Client
}

func NewOkx(http *resty.Client) *Okx {
	return &Okx{http: http}
}

func (o *Okx) Name() string { return "OKX" }

func (o *Okx) SpotSymbol(sym model.Symbol) string {
	return sym.Base + "-" + sym.Quote
}

func (o *Okx) FuturesSymbol(sym model.Symbol) (string, bool) {
	return "", false
}

func (o *Okx) SpotURL(sym model.Symbol) string {
	return okxSpotTradeURL + strings.ToLower(sym.Base+"-"+sym.Quote)
}

func (o *Okx) FuturesURL(sym model.Symbol) (string, bool) {
	return "", false
}

func (o *Okx) FundingSettlementsPerDay() int { return 0 }

func (o *Okx) FetchBook(ctx context.Context) (*Book, error) {
	var resp okxTickersResponse
	if err := getJSON(ctx, o.http, okxSpotTickersURL, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, fmt.Errorf("okx tickers: code %s: %s", resp.Code, resp.Msg)
	}
	return buildOkxBook(resp.Data), nil
}

func buildOkxBook(tickers []okxTicker) *Book {
	book := &Book{Spot: make(map[string]Ticker, len(tickers))}
	for _, t := range tickers {
		book.Spot[t.InstID] = Ticker{
			Price:       parseFloat(t.Last),
			QuoteVolume: parseFloat(t.VolCcy24h),
		}
	}
	return book
}
