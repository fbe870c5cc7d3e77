package yahoo

import (
	"context"
	"strings"

	"marketquote/internal/provider"
)

type Config struct {
	Name string // display name, default: Yahoo
}

// Provider adapts Client to provider.Provider.
type Provider struct {
	cfg    Config
	client *Client
}

func New(cfg Config, client *Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "Yahoo"
	}
	return &Provider{cfg: cfg, client: client}
}

func (p *Provider) Name() string { return p.cfg.Name }

// FetchQuotes issues a single request for the unique symbols, preserving
// request order.
func (p *Provider) FetchQuotes(ctx context.Context, symbols []string) (provider.Quotes, error) {
	seen := make(map[string]struct{}, len(symbols))
	uniq := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(s)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		uniq = append(uniq, s)
	}
	return p.client.GetQuotes(ctx, uniq)
}

func (p *Provider) FetchHistory(ctx context.Context, symbol, period, interval string) ([]provider.Bar, error) {
	return p.client.GetChart(ctx, symbol, period, interval)
}
