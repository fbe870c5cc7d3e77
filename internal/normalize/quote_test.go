package normalize_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketquote/internal/normalize"
	"marketquote/internal/provider"
)

func aapl() provider.Record {
	return provider.Record{
		"regularMarketPrice":         189.71,
		"regularMarketChange":        1.2,
		"regularMarketChangePercent": 0.0064,
		"regularMarketPreviousClose": 188.51,
		"regularMarketOpen":          188.9,
		"regularMarketDayHigh":       190.05,
		"regularMarketDayLow":        188.2,
		"regularMarketVolume":        float64(53421000),
		"regularMarketTime":          float64(1700000000),
		"longName":                   "Apple Inc.",
		"shortName":                  "Apple",
		"currency":                   "USD",
		"exchange":                   "NMS",
		"fullExchangeName":           "NasdaqGS",
		"marketState":                "REGULAR",
		"preMarketPrice":             189.1,
		"postMarketTime":             "2023-11-14T21:00:00Z",
	}
}

func TestNormalizeBatchQuotes_PartialFailure(t *testing.T) {
	t.Parallel()

	// Arrange: the provider knows AAPL but not ZZZZINVALID.
	raw := provider.Quotes{"AAPL": aapl()}

	// Act
	batch, err := normalize.NormalizeBatchQuotes([]string{"AAPL", "ZZZZINVALID"}, raw, time.UTC, "Yahoo")
	require.NoError(t, err)

	// Assert: one entry each, the bad symbol isolated.
	require.Equal(t, 2, batch.Len())
	bad, ok := batch.Get("ZZZZINVALID")
	require.True(t, ok)
	require.Equal(t, normalize.QuoteError{Error: "No data available for ZZZZINVALID"}, bad)

	good, ok := batch.Get("AAPL")
	require.True(t, ok)
	q, ok := good.(*normalize.Quote)
	require.True(t, ok, "unexpected entry %T", good)
	require.InDelta(t, 189.71, q.RegularMarketPrice.Float64, 1e-9)
	require.Equal(t, int64(53421000), q.RegularMarketVolume.Int64)
	require.Equal(t, int64(1700000000), q.RegularMarketTime.Int64)
	require.Equal(t, "Apple Inc.", q.LongName.String)
	require.Equal(t, "USD", q.CurrencySymbol)
	require.Equal(t, "NMS", q.ExchangeName.String)
	require.Equal(t, "REGULAR", q.MarketState.String)
	require.Equal(t, int64(1699995600), q.PostMarketTime.Int64)
	require.False(t, q.PostMarketPrice.Valid)
}

func TestNormalizeBatchQuotes_Fallbacks(t *testing.T) {
	t.Parallel()

	raw := provider.Quotes{
		"MSFT": provider.Record{
			"regularMarketPrice": 370.0,
			"shortName":          "Microsoft",
			"fullExchangeName":   "NasdaqGS",
			"regularMarketTime":  nil,
		},
	}

	batch, err := normalize.NormalizeBatchQuotes([]string{"MSFT"}, raw, time.UTC, "Yahoo")
	require.NoError(t, err)

	e, _ := batch.Get("MSFT")
	q := e.(*normalize.Quote)
	require.Equal(t, "Microsoft", q.LongName.String)
	require.Equal(t, "$", q.CurrencySymbol)
	require.Equal(t, "NasdaqGS", q.ExchangeName.String)
	require.False(t, q.RegularMarketTime.Valid)
	require.False(t, q.RegularMarketVolume.Valid)
}

func TestNormalizeBatchQuotes_MalformedEntry(t *testing.T) {
	t.Parallel()

	raw := provider.Quotes{
		"BAD":   "Quote not found for ticker symbol: BAD",
		"EMPTY": map[string]any{},
		"NULL":  nil,
		"AAPL":  aapl(),
	}

	batch, err := normalize.NormalizeBatchQuotes([]string{"BAD", "EMPTY", "NULL", "AAPL"}, raw, time.UTC, "Yahoo")
	require.NoError(t, err)

	for _, sym := range []string{"BAD", "EMPTY", "NULL"} {
		got, _ := batch.Get(sym)
		require.Equal(t, normalize.QuoteError{Error: "No data available for " + sym}, got)
	}
	_, ok := batch.Get("AAPL")
	require.True(t, ok)
}

func TestNormalizeBatchQuotes_NilResponseFailsWholeBatch(t *testing.T) {
	t.Parallel()

	_, err := normalize.NormalizeBatchQuotes([]string{"AAPL"}, nil, time.UTC, "Yahoo")

	var nerr *normalize.Error
	require.ErrorAs(t, err, &nerr)
	require.True(t, nerr.Fatal())
	require.EqualError(t, err, "No price data received from Yahoo")
}

func TestNormalizeBatchQuotes_DuplicatesOverwrite(t *testing.T) {
	t.Parallel()

	raw := provider.Quotes{"AAPL": aapl()}

	batch, err := normalize.NormalizeBatchQuotes([]string{"AAPL", "X", "AAPL"}, raw, time.UTC, "Yahoo")
	require.NoError(t, err)
	require.Equal(t, 2, batch.Len())
	require.Equal(t, []string{"AAPL", "X"}, batch.Symbols())
}

func TestBatch_MarshalJSON(t *testing.T) {
	t.Parallel()

	raw := provider.Quotes{"MSFT": provider.Record{"regularMarketPrice": 370.5}}
	batch, err := normalize.NormalizeBatchQuotes([]string{"ZZZ", "MSFT"}, raw, time.UTC, "Yahoo")
	require.NoError(t, err)

	b, err := json.Marshal(batch)
	require.NoError(t, err)

	// Assert: request order kept, nulls for every missing field.
	require.Regexp(t, `^\{"ZZZ":\{"error":"No data available for ZZZ"\},"MSFT":\{`, string(b))

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	msft := decoded["MSFT"]
	require.Len(t, msft, 22)
	require.InDelta(t, 370.5, msft["regularMarketPrice"], 1e-9)
	require.Nil(t, msft["regularMarketTime"])
	require.Nil(t, msft["longName"])
	require.Equal(t, "$", msft["currencySymbol"])
}

func TestNormalizeQuote(t *testing.T) {
	t.Parallel()

	raw := provider.Quotes{
		"AAPL":  aapl(),
		"NOPX":  provider.Record{"shortName": "No Price"},
		"STR":   "not a record",
		"NOCUR": provider.Record{"regularMarketPrice": 1.5, "longName": "No Currency Corp"},
		"NULLC": provider.Record{"regularMarketPrice": 2.5, "currency": nil},
		"SHORT": provider.Record{"regularMarketPrice": 3.5, "shortName": "Short"},
	}

	t.Run("valid", func(t *testing.T) {
		q, err := normalize.NormalizeQuote("AAPL", raw)
		require.NoError(t, err)
		require.Equal(t, "AAPL", q.Symbol)
		require.Equal(t, "USD", q.CurrencySymbol.String)
		require.Equal(t, "Apple", q.ShortName.String)

		b, err := json.Marshal(q)
		require.NoError(t, err)
		require.NotContains(t, string(b), "regularMarketTime")
		require.NotContains(t, string(b), "exchangeName")
		require.NotContains(t, string(b), "marketState")
	})

	t.Run("missing symbol", func(t *testing.T) {
		_, err := normalize.NormalizeQuote("ZZZZ", raw)
		require.EqualError(t, err, "No data found for ZZZZ")
		var nerr *normalize.Error
		require.ErrorAs(t, err, &nerr)
		require.Equal(t, normalize.NoData, nerr.Kind)
		require.False(t, nerr.Fatal())
	})

	t.Run("no price field", func(t *testing.T) {
		_, err := normalize.NormalizeQuote("NOPX", raw)
		require.EqualError(t, err, "Invalid data format for NOPX")
	})

	t.Run("not a record", func(t *testing.T) {
		_, err := normalize.NormalizeQuote("STR", raw)
		require.EqualError(t, err, "Invalid data format for STR")
	})

	t.Run("currency defaults only when absent", func(t *testing.T) {
		q, err := normalize.NormalizeQuote("NOCUR", raw)
		require.NoError(t, err)
		require.Equal(t, "$", q.CurrencySymbol.String)

		q, err = normalize.NormalizeQuote("NULLC", raw)
		require.NoError(t, err)
		require.False(t, q.CurrencySymbol.Valid)
	})

	t.Run("long name passes through", func(t *testing.T) {
		q, err := normalize.NormalizeQuote("SHORT", raw)
		require.NoError(t, err)
		require.False(t, q.LongName.Valid)
		require.Equal(t, "Short", q.ShortName.String)
	})
}
