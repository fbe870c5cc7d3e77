package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"marketquote/internal/provider"
)

type quoteResponse struct {
	QuoteResponse struct {
		Result []map[string]any `json:"result"`
		Error  *apiError        `json:"error"`
	} `json:"quoteResponse"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// GetQuotes fetches price snapshots for all symbols in one request. The
// result is keyed by the symbol Yahoo echoes back; symbols Yahoo does not
// know are simply absent.
func (c *Client) GetQuotes(ctx context.Context, symbols []string, opts ...ClientOption) (provider.Quotes, error) {
	override := c.clone(opts...)

	res, err := override.quoteRequest(ctx, symbols, false)
	if err != nil {
		return nil, err
	}
	// A stale crumb is rejected with 401; renew the session once.
	if res.StatusCode == http.StatusUnauthorized {
		res.Body.Close()
		if res, err = override.quoteRequest(ctx, symbols, true); err != nil {
			return nil, err
		}
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return nil, err
	}

	var body quoteResponse
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding quote response: %w", err)
	}
	if body.QuoteResponse.Error != nil {
		return nil, body.QuoteResponse.Error
	}

	out := make(provider.Quotes, len(body.QuoteResponse.Result))
	for _, raw := range body.QuoteResponse.Result {
		// {
		//   "symbol": "AAPL",
		//   "regularMarketPrice": 189.71,
		//   "regularMarketTime": 1700000000,
		//   "currency": "USD",
		//   ...
		// }
		sym, _ := raw["symbol"].(string)
		if sym == "" {
			continue
		}
		out[strings.ToUpper(sym)] = provider.Record(raw)
	}
	return out, nil
}

func (c *Client) quoteRequest(ctx context.Context, symbols []string, refresh bool) (*http.Response, error) {
	crumb, cookies, err := c.crumb(ctx, refresh)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for key, values := range c.query {
		query[key] = values
	}
	query.Set("symbols", strings.Join(symbols, ","))
	query.Set("crumb", crumb)

	res, err := c.get(ctx, fmt.Sprintf("%s/v7/finance/quote?%s", c.baseURL, query.Encode()), cookies)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	return res, nil
}

func checkStatus(res *http.Response) error {
	switch res.StatusCode {
	case http.StatusOK:
		return nil

	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("unauthorized")

	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited")

	default:
		return fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}
}
