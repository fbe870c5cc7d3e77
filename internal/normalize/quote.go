package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"marketquote/internal/provider"
)

// DefaultCurrencySymbol is used when the provider reports no currency.
const DefaultCurrencySymbol = "$"

// Entry is one value of a Batch: either *Quote or QuoteError.
type Entry interface {
	entry()
}

// Quote is the caller-facing snapshot for one symbol in a batch.
type Quote struct {
	RegularMarketPrice         null.Float  `json:"regularMarketPrice"`
	RegularMarketChange        null.Float  `json:"regularMarketChange"`
	RegularMarketChangePercent null.Float  `json:"regularMarketChangePercent"`
	RegularMarketPreviousClose null.Float  `json:"regularMarketPreviousClose"`
	RegularMarketOpen          null.Float  `json:"regularMarketOpen"`
	RegularMarketDayHigh       null.Float  `json:"regularMarketDayHigh"`
	RegularMarketDayLow        null.Float  `json:"regularMarketDayLow"`
	RegularMarketVolume        null.Int    `json:"regularMarketVolume"`
	RegularMarketTime          null.Int    `json:"regularMarketTime"`
	LongName                   null.String `json:"longName"`
	ShortName                  null.String `json:"shortName"`
	CurrencySymbol             string      `json:"currencySymbol"`
	ExchangeName               null.String `json:"exchangeName"`
	MarketState                null.String `json:"marketState"`
	PreMarketPrice             null.Float  `json:"preMarketPrice"`
	PreMarketChange            null.Float  `json:"preMarketChange"`
	PreMarketChangePercent     null.Float  `json:"preMarketChangePercent"`
	PreMarketTime              null.Int    `json:"preMarketTime"`
	PostMarketPrice            null.Float  `json:"postMarketPrice"`
	PostMarketChange           null.Float  `json:"postMarketChange"`
	PostMarketChangePercent    null.Float  `json:"postMarketChangePercent"`
	PostMarketTime             null.Int    `json:"postMarketTime"`
}

func (*Quote) entry() {}

// QuoteError stands in for a Quote when a symbol could not be resolved.
type QuoteError struct {
	Error string `json:"error"`
}

func (QuoteError) entry() {}

// Batch maps each requested symbol to its entry. It serializes in the order
// symbols were first requested; a repeated symbol overwrites its earlier entry.
type Batch struct {
	order   []string
	entries map[string]Entry
}

func (b *Batch) set(symbol string, e Entry) {
	if b.entries == nil {
		b.entries = make(map[string]Entry)
	}
	if _, ok := b.entries[symbol]; !ok {
		b.order = append(b.order, symbol)
	}
	b.entries[symbol] = e
}

// Get returns the entry for symbol.
func (b Batch) Get(symbol string) (Entry, bool) {
	e, ok := b.entries[symbol]
	return e, ok
}

// Len returns the number of distinct symbols.
func (b Batch) Len() int { return len(b.order) }

// Symbols returns the distinct symbols in first-requested order.
func (b Batch) Symbols() []string {
	return append([]string(nil), b.order...)
}

func (b Batch) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sym := range b.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(sym)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(b.entries[sym])
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", sym, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NormalizeBatchQuotes builds one entry per requested symbol from a single
// provider response. A nil response fails the whole batch; a missing or
// malformed symbol only fails its own entry.
func NormalizeBatchQuotes(symbols []string, raw provider.Quotes, loc *time.Location, source string) (Batch, error) {
	if raw == nil {
		return Batch{}, &Error{Kind: NoPriceData, Op: OpBatch, Source: source}
	}
	var out Batch
	for _, sym := range symbols {
		rec, ok := provider.AsRecord(raw[sym])
		if !ok || len(rec) == 0 {
			out.set(sym, QuoteError{Error: fmt.Sprintf("No data available for %s", sym)})
			continue
		}
		out.set(sym, batchQuote(rec, loc))
	}
	return out, nil
}

func batchQuote(rec provider.Record, loc *time.Location) *Quote {
	rawTime, _ := rec.Get("regularMarketTime")
	preTime, _ := rec.Get("preMarketTime")
	postTime, _ := rec.Get("postMarketTime")
	return &Quote{
		RegularMarketPrice:         rec.Float("regularMarketPrice"),
		RegularMarketChange:        rec.Float("regularMarketChange"),
		RegularMarketChangePercent: rec.Float("regularMarketChangePercent"),
		RegularMarketPreviousClose: rec.Float("regularMarketPreviousClose"),
		RegularMarketOpen:          rec.Float("regularMarketOpen"),
		RegularMarketDayHigh:       rec.Float("regularMarketDayHigh"),
		RegularMarketDayLow:        rec.Float("regularMarketDayLow"),
		RegularMarketVolume:        rec.Int("regularMarketVolume"),
		RegularMarketTime:          UnixSeconds(rawTime, loc),
		LongName:                   firstString(rec, "longName", "shortName"),
		ShortName:                  rec.String("shortName"),
		CurrencySymbol:             currencySymbol(rec),
		ExchangeName:               firstString(rec, "exchange", "fullExchangeName"),
		MarketState:                rec.String("marketState"),
		PreMarketPrice:             rec.Float("preMarketPrice"),
		PreMarketChange:            rec.Float("preMarketChange"),
		PreMarketChangePercent:     rec.Float("preMarketChangePercent"),
		PreMarketTime:              UnixSeconds(preTime, loc),
		PostMarketPrice:            rec.Float("postMarketPrice"),
		PostMarketChange:           rec.Float("postMarketChange"),
		PostMarketChangePercent:    rec.Float("postMarketChangePercent"),
		PostMarketTime:             UnixSeconds(postTime, loc),
	}
}

// firstString returns the first non-empty string among keys.
func firstString(rec provider.Record, keys ...string) null.String {
	for _, k := range keys {
		if s := rec.String(k); s.Valid {
			return s
		}
	}
	return null.String{}
}

func currencySymbol(rec provider.Record) string {
	if s := rec.String("currency"); s.Valid {
		return s.String
	}
	return DefaultCurrencySymbol
}

// SingleQuote is the caller-facing snapshot returned for a one-symbol
// request. It carries no timestamps, exchange or session fields.
type SingleQuote struct {
	Symbol                     string      `json:"symbol"`
	RegularMarketPrice         null.Float  `json:"regularMarketPrice"`
	RegularMarketChange        null.Float  `json:"regularMarketChange"`
	RegularMarketChangePercent null.Float  `json:"regularMarketChangePercent"`
	RegularMarketPreviousClose null.Float  `json:"regularMarketPreviousClose"`
	RegularMarketOpen          null.Float  `json:"regularMarketOpen"`
	RegularMarketDayHigh       null.Float  `json:"regularMarketDayHigh"`
	RegularMarketDayLow        null.Float  `json:"regularMarketDayLow"`
	RegularMarketVolume        null.Int    `json:"regularMarketVolume"`
	LongName                   null.String `json:"longName"`
	ShortName                  null.String `json:"shortName"`
	CurrencySymbol             null.String `json:"currencySymbol"`
}

// NormalizeQuote converts the provider response for one symbol.
func NormalizeQuote(symbol string, raw provider.Quotes) (SingleQuote, error) {
	v, ok := raw[symbol]
	if !ok {
		return SingleQuote{}, &Error{Kind: NoData, Op: OpQuote, Symbol: symbol}
	}
	rec, ok := provider.AsRecord(v)
	if !ok || !rec.Has("regularMarketPrice") {
		return SingleQuote{}, &Error{Kind: InvalidFormat, Op: OpQuote, Symbol: symbol}
	}

	currency := rec.String("currency")
	if !rec.Has("currency") {
		currency = null.StringFrom(DefaultCurrencySymbol)
	}
	return SingleQuote{
		Symbol:                     symbol,
		RegularMarketPrice:         rec.Float("regularMarketPrice"),
		RegularMarketChange:        rec.Float("regularMarketChange"),
		RegularMarketChangePercent: rec.Float("regularMarketChangePercent"),
		RegularMarketPreviousClose: rec.Float("regularMarketPreviousClose"),
		RegularMarketOpen:          rec.Float("regularMarketOpen"),
		RegularMarketDayHigh:       rec.Float("regularMarketDayHigh"),
		RegularMarketDayLow:        rec.Float("regularMarketDayLow"),
		RegularMarketVolume:        rec.Int("regularMarketVolume"),
		LongName:                   rec.String("longName"),
		ShortName:                  rec.String("shortName"),
		CurrencySymbol:             currency,
	}, nil
}
