package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/guregu/null/v6"

	"marketquote/internal/provider"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol               string `json:"symbol"`
	Timezone             string `json:"timezone"`
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	GMTOffset            int    `json:"gmtoffset"`
}

type indicators struct {
	Quote []chartQuote `json:"quote"`
}

// chartQuote holds parallel arrays; Yahoo pads missing bars with null.
type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

// GetChart fetches the bar series for symbol. period and interval are passed
// through as Yahoo's range and interval tokens. A symbol Yahoo reports as not
// found yields an empty series rather than an error.
func (c *Client) GetChart(ctx context.Context, symbol, period, interval string, opts ...ClientOption) ([]provider.Bar, error) {
	override := c.clone(opts...)

	query := override.query
	query.Set("range", period)
	query.Set("interval", interval)
	query.Set("includePrePost", "false")

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", override.baseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = override.header

	res, err := override.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	// Yahoo answers unknown symbols with a 404 and a chart error body.
	if res.StatusCode != http.StatusNotFound {
		if err := checkStatus(res); err != nil {
			return nil, err
		}
	}

	var body chartResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		if res.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
		}
		return nil, fmt.Errorf("decoding chart response: %w", err)
	}
	if e := body.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, nil
		}
		return nil, e
	}
	if len(body.Chart.Result) == 0 {
		return nil, nil
	}

	return bars(body.Chart.Result[0]), nil
}

func bars(r chartResult) []provider.Bar {
	loc := location(r.Meta)
	var q chartQuote
	if len(r.Indicators.Quote) > 0 {
		q = r.Indicators.Quote[0]
	}

	out := make([]provider.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		out = append(out, provider.Bar{
			Time:   null.TimeFrom(time.Unix(ts, 0).In(loc)),
			Open:   null.FloatFromPtr(at(q.Open, i)),
			High:   null.FloatFromPtr(at(q.High, i)),
			Low:    null.FloatFromPtr(at(q.Low, i)),
			Close:  null.FloatFromPtr(at(q.Close, i)),
			Volume: null.IntFromPtr(at(q.Volume, i)),
		})
	}
	return out
}

func at[T any](s []*T, i int) *T {
	if i < len(s) {
		return s[i]
	}
	return nil
}

// location resolves the exchange timezone so daily bars land on the
// exchange's calendar date.
func location(m chartMeta) *time.Location {
	if m.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(m.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	if m.Timezone != "" || m.GMTOffset != 0 {
		return time.FixedZone(m.Timezone, m.GMTOffset)
	}
	return time.UTC
}
