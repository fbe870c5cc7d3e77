package financego

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"marketquote/internal/provider"
)

type Config struct {
	Name     string         // display name, default: Yahoo
	Location *time.Location // location for bar times, default: UTC
}

// Adapter serves provider.Provider from github.com/piquette/finance-go.
type Adapter struct {
	cfg Config
	now func() time.Time

	listQuotes func(symbols []string) ([]finance.Quote, error)
	getChart   func(params *chart.Params) ([]finance.ChartBar, error)
}

func New(cfg Config) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Adapter{
		cfg:        cfg,
		now:        time.Now,
		listQuotes: listQuotes,
		getChart:   getChart,
	}
}

func (a *Adapter) Name() string { return a.cfg.Name }

func (a *Adapter) FetchQuotes(ctx context.Context, symbols []string) (provider.Quotes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	quotes, err := a.listQuotes(symbols)
	if err != nil {
		return nil, err
	}
	out := make(provider.Quotes, len(quotes))
	for _, q := range quotes {
		rec, err := toRecord(q)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", q.Symbol, err)
		}
		out[strings.ToUpper(q.Symbol)] = rec
	}
	return out, nil
}

func (a *Adapter) FetchHistory(ctx context.Context, symbol, period, interval string) ([]provider.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := a.now().In(a.cfg.Location)
	start, err := periodStart(period, now)
	if err != nil {
		return nil, err
	}
	bars, err := a.getChart(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&now),
		Interval: datetime.Interval(interval),
	})
	if err != nil {
		return nil, err
	}
	out := make([]provider.Bar, 0, len(bars))
	for _, b := range bars {
		out = append(out, provider.Bar{
			Time:   null.TimeFrom(time.Unix(int64(b.Timestamp), 0).In(a.cfg.Location)),
			Open:   decimalFloat(b.Open),
			High:   decimalFloat(b.High),
			Low:    decimalFloat(b.Low),
			Close:  decimalFloat(b.Close),
			Volume: null.IntFrom(int64(b.Volume)),
		})
	}
	return out, nil
}

func listQuotes(symbols []string) ([]finance.Quote, error) {
	var quotes []finance.Quote
	iter := quote.List(symbols)
	for iter.Next() {
		quotes = append(quotes, *iter.Quote())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return quotes, nil
}

func getChart(params *chart.Params) ([]finance.ChartBar, error) {
	var bars []finance.ChartBar
	iter := chart.Get(params)
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// zeroable maps fields whose zero is a real reading (a flat day, no trades
// yet) to the price field that must be present for that to hold.
var zeroable = map[string]string{
	"regularMarketChange":        "regularMarketPrice",
	"regularMarketChangePercent": "regularMarketPrice",
	"regularMarketVolume":        "regularMarketPrice",
	"preMarketChange":            "preMarketPrice",
	"preMarketChangePercent":     "preMarketPrice",
	"postMarketChange":           "postMarketPrice",
	"postMarketChangePercent":    "postMarketPrice",
}

// toRecord re-keys a typed quote by its Yahoo field names. finance-go
// decodes absent fields to zero values, so zero values are dropped and read
// as missing, except for the zeroable fields of a price that is present.
// A genuine zero price cannot be told apart from a missing one.
func toRecord(q finance.Quote) (provider.Record, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	rec := make(provider.Record, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case float64:
			if x == 0 {
				anchor, ok := zeroable[k]
				if p, _ := raw[anchor].(float64); !ok || p == 0 {
					continue
				}
			}
		case string:
			if x == "" {
				continue
			}
		case bool:
			if !x {
				continue
			}
		case nil:
			continue
		}
		rec[k] = v
	}
	return rec, nil
}

// decimalFloat treats a zero price as a hole; finance-go fills nulls with 0.
func decimalFloat(d decimal.Decimal) null.Float {
	if d.IsZero() {
		return null.Float{}
	}
	f, _ := d.Float64()
	return null.FloatFrom(f)
}

// periodStart turns a Yahoo range token into the start of the window.
func periodStart(period string, now time.Time) (time.Time, error) {
	switch period {
	case "1d":
		return now.AddDate(0, 0, -1), nil
	case "5d":
		return now.AddDate(0, 0, -5), nil
	case "1mo":
		return now.AddDate(0, -1, 0), nil
	case "3mo":
		return now.AddDate(0, -3, 0), nil
	case "6mo":
		return now.AddDate(0, -6, 0), nil
	case "1y":
		return now.AddDate(-1, 0, 0), nil
	case "2y":
		return now.AddDate(-2, 0, 0), nil
	case "5y":
		return now.AddDate(-5, 0, 0), nil
	case "10y":
		return now.AddDate(-10, 0, 0), nil
	case "ytd":
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), nil
	case "max":
		return time.Unix(0, 0).In(now.Location()), nil
	}
	return time.Time{}, fmt.Errorf("unsupported period %q", period)
}
