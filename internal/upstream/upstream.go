// Package upstream builds the configured market data provider.
package upstream

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketquote/internal/config"
	"marketquote/internal/httpx"
	"marketquote/internal/provider"
	"marketquote/internal/provider/financego"
	"marketquote/internal/provider/yahoo"
)

const (
	Yahoo     = "yahoo"
	FinanceGo = "financego"
)

// New returns the provider named by cfg.Provider. loc is used by providers
// that cannot infer the exchange timezone themselves.
func New(cfg config.Config, loc *time.Location) (provider.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", Yahoo:
		httpClient := httpx.New(cfg.RequestTimeout())
		if cfg.Yahoo.UserAgent != "" {
			httpClient.UserAgent = cfg.Yahoo.UserAgent
		}
		client, err := yahoo.NewClient(
			yahoo.WithBaseURL(cfg.Yahoo.BaseURL),
			yahoo.WithHTTPClient(httpClient),
			yahoo.WithHeader(http.Header{
				"Accept": []string{"application/json"},
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("yahoo client: %w", err)
		}
		return yahoo.New(yahoo.Config{}, client), nil
	case FinanceGo:
		return financego.New(financego.Config{Location: loc}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
