package exchange

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/go-resty/resty/v2"

	"arbmon/internal/model"
)

// Ticker is one already-parsed spot record from a venue's ticker list: last
// price and 24h quote-currency volume, keyed in Book by the venue's native
// identifier.
type Ticker struct {
	Price       float64
	QuoteVolume float64
}

// FuturesTicker is one parsed perpetual-futures record. FundingRate is in
// percent per settlement and nil when the venue does not report one.
type FuturesTicker struct {
	Mark        float64
	Index       float64
	QuoteVolume float64
	FundingRate *float64
}

// Book is a single venue's full ticker collection for one poll cycle. A nil
// Book (venue fetch failed) simply yields no quotes.
type Book struct {
	Spot    map[string]Ticker
	Futures map[string]FuturesTicker
}

// Client is the adapter capability every venue implements: native symbol
// formatting, ticker fetching and trading-page URL construction. Quote lookup
// itself is shared (SpotQuote, FuturesQuote) since it only depends on the
// formatting rule.
type Client interface {
	// Name returns the display name of the venue, e.g. "Binance".
	Name() string

	// SpotSymbol maps a canonical symbol to the venue's native spot
	// identifier.
	SpotSymbol(sym model.Symbol) string

	// FuturesSymbol maps a canonical symbol to the venue's native perpetual
	// identifier; ok is false for spot-only venues.
	FuturesSymbol(sym model.Symbol) (string, bool)

	// SpotURL returns the venue's spot trading page for the symbol. The URL
	// is constructed, never validated for reachability.
	SpotURL(sym model.Symbol) string

	// FuturesURL returns the venue's futures trading page, if any.
	FuturesURL(sym model.Symbol) (string, bool)

	// FundingSettlementsPerDay reports the venue's perpetual funding cadence,
	// 0 for spot-only venues.
	FundingSettlementsPerDay() int

	// FetchBook retrieves and parses the venue's ticker lists. A failure
	// covers the whole venue for this cycle and is never fatal to the cycle.
	FetchBook(ctx context.Context) (*Book, error)
}

// SpotQuote looks up the venue's spot quote for a canonical symbol. Absent is
// an expected condition: the venue may not list the pair, the feed may be
// transiently incomplete, or the price may have failed to parse.
func SpotQuote(c Client, book *Book, sym model.Symbol) (model.PricePoint, bool) {
	if book == nil {
		return model.PricePoint{}, false
	}
	t, ok := book.Spot[c.SpotSymbol(sym)]
	if !ok || !validPrice(t.Price) {
		return model.PricePoint{}, false
	}
	return model.PricePoint{
		Venue:       c.Name(),
		Kind:        model.Spot,
		Price:       t.Price,
		VolumeQuote: nonNegative(t.QuoteVolume),
	}, true
}

// FuturesQuote looks up the venue's perpetual-futures quote (mark price) for
// a canonical symbol, along with the funding rate when the venue reports one.
func FuturesQuote(c Client, book *Book, sym model.Symbol) (model.PricePoint, *float64, bool) {
	if book == nil {
		return model.PricePoint{}, nil, false
	}
	id, ok := c.FuturesSymbol(sym)
	if !ok {
		return model.PricePoint{}, nil, false
	}
	t, ok := book.Futures[id]
	if !ok || !validPrice(t.Mark) {
		return model.PricePoint{}, nil, false
	}
	return model.PricePoint{
		Venue:       c.Name(),
		Kind:        model.Futures,
		Price:       t.Mark,
		VolumeQuote: nonNegative(t.QuoteVolume),
	}, t.FundingRate, true
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseFloat returns NaN on malformed input so the value fails the validity
// check downstream instead of masquerading as a zero price.
func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// getJSON performs one GET against a venue endpoint and decodes the JSON body
// into out.
func getJSON(ctx context.Context, http *resty.Client, url string, out any) error {
	resp, err := http.R().SetContext(ctx).SetResult(out).Get(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("GET %s: unexpected status %s", url, resp.Status())
	}
	return nil
}

// NewClients returns the full venue registry. Adding a venue means adding a
// file implementing Client and listing it here; the engine never changes.
func NewClients(http *resty.Client) []Client {
	return []Client{
		NewBinance(http),
		NewBybit(http),
		NewMexc(http),
		NewOkx(http),
		NewGateio(http),
		NewBitget(http),
	}
}
