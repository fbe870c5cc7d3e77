package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/require"

	"marketquote/internal/config"
	"marketquote/internal/normalize"
	"marketquote/internal/provider"
)

type fakeProvider struct {
	quotes   provider.Quotes
	bars     []provider.Bar
	err      error
	symbols  []string
	period   string
	interval string
}

func (f *fakeProvider) Name() string { return "Fake" }

func (f *fakeProvider) FetchQuotes(_ context.Context, symbols []string) (provider.Quotes, error) {
	f.symbols = symbols
	return f.quotes, f.err
}

func (f *fakeProvider) FetchHistory(_ context.Context, symbol, period, interval string) ([]provider.Bar, error) {
	f.symbols = []string{symbol}
	f.period, f.interval = period, interval
	return f.bars, f.err
}

func run(t *testing.T, cmd Command, p *fakeProvider, args ...string) (int, string) {
	t.Helper()
	t.Chdir(t.TempDir())

	var stdout, stderr bytes.Buffer
	r := Runner{
		Stdout: &stdout,
		Stderr: &stderr,
		NewProvider: func(config.Config, *time.Location) (provider.Provider, error) {
			return p, nil
		},
	}
	code := r.Run(t.Context(), cmd, append(args, "--timezone=UTC"))
	return code, stdout.String()
}

func TestQuotes_PartialFailure(t *testing.T) {
	// Arrange
	p := &fakeProvider{quotes: provider.Quotes{
		"AAPL": provider.Record{"regularMarketPrice": 189.71, "longName": "Apple Inc."},
	}}

	// Act
	code, out := run(t, Quotes, p, "aapl,zzzzinvalid")

	// Assert
	require.Equal(t, 0, code)
	require.Equal(t, []string{"AAPL", "ZZZZINVALID"}, p.symbols)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	require.InDelta(t, 189.71, got["AAPL"]["regularMarketPrice"], 1e-9)
	require.Equal(t, "Apple Inc.", got["AAPL"]["longName"])
	require.Equal(t, map[string]any{"error": "No data available for ZZZZINVALID"}, got["ZZZZINVALID"])
}

func TestQuotes_Usage(t *testing.T) {
	code, out := run(t, Quotes, &fakeProvider{})

	require.Equal(t, 1, code)
	require.JSONEq(t, `{"error":"Usage: quotes <SYMBOL1> [SYMBOL2] [SYMBOL3] ..."}`, out)
}

func TestQuotes_UpstreamFailure(t *testing.T) {
	code, out := run(t, Quotes, &fakeProvider{err: errors.New("boom")}, "AAPL")

	require.Equal(t, 1, code)
	require.JSONEq(t, `{"error":"Failed to fetch batch quotes: boom"}`, out)
}

func TestQuote_TooManyArgs(t *testing.T) {
	code, out := run(t, Quote, &fakeProvider{}, "AAPL", "MSFT")

	require.Equal(t, 1, code)
	require.JSONEq(t, `{"error":"Usage: quote <SYMBOL>"}`, out)
}

func TestQuote_NoDataIsRecoverable(t *testing.T) {
	code, out := run(t, Quote, &fakeProvider{quotes: provider.Quotes{}}, "msft")

	require.Equal(t, 0, code)
	require.JSONEq(t, `{"error":"No data found for MSFT"}`, out)
}

func TestHistory_Defaults(t *testing.T) {
	// Arrange
	p := &fakeProvider{bars: []provider.Bar{{
		Time:  null.TimeFrom(time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)),
		Open:  null.FloatFrom(100.005),
		Close: null.FloatFrom(101.2),
	}}}

	// Act
	code, out := run(t, History, p, "aapl")

	// Assert
	require.Equal(t, 0, code)
	require.Equal(t, "1mo", p.period)
	require.Equal(t, "1d", p.interval)

	var got normalize.History
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "AAPL", got.Symbol)
	require.Len(t, got.Data, 1)
	require.Equal(t, "2024-03-01", got.Data[0].Date)
}

func TestHistory_Empty(t *testing.T) {
	code, out := run(t, History, &fakeProvider{}, "AAPL")

	require.Equal(t, 0, code)
	require.JSONEq(t, `{"error":"No historical data found for AAPL"}`, out)
}

func TestIntraday_PeriodAndInterval(t *testing.T) {
	p := &fakeProvider{bars: []provider.Bar{{Time: null.TimeFrom(time.Unix(1700000000, 0))}}}

	code, _ := run(t, Intraday, p, "msft", "5d", "5m")

	require.Equal(t, 0, code)
	require.Equal(t, []string{"MSFT"}, p.symbols)
	require.Equal(t, "5d", p.period)
	require.Equal(t, "5m", p.interval)
}

func TestRun_ProviderError(t *testing.T) {
	t.Chdir(t.TempDir())

	var stdout bytes.Buffer
	r := Runner{
		Stdout: &stdout,
		Stderr: &bytes.Buffer{},
		NewProvider: func(config.Config, *time.Location) (provider.Provider, error) {
			return nil, errors.New(`unknown provider "x"`)
		},
	}

	code := r.Run(t.Context(), Quotes, []string{"AAPL"})

	require.Equal(t, 1, code)
	require.JSONEq(t, `{"error":"unknown provider \"x\""}`, stdout.String())
}

func TestParseSymbols(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"AAPL", "MSFT", "BRK-B"}, ParseSymbols([]string{"aapl, msft", "brk-b", " "}))
	require.Empty(t, ParseSymbols([]string{",,"}))
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 0, ExitCode(&normalize.Error{Kind: normalize.NoHistory, Symbol: "X"}))
	require.Equal(t, 1, ExitCode(&normalize.Error{Kind: normalize.Upstream, Err: errors.New("x")}))
	require.Equal(t, 1, ExitCode(errors.New("plain")))
}
