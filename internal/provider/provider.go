package provider

import (
	"context"
	"encoding/json"
	"math"

	"github.com/guregu/null/v6"
)

// Record is the raw per-symbol snapshot returned by a provider.
// Fields are looked up by name and may be missing or null at any time.
type Record map[string]any

// Get returns the raw value for key. A JSON null reads as missing.
func (r Record) Get(key string) (any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether key is present, even if its value is null.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Float reads a numeric field. NaN and infinities read as null.
func (r Record) Float(key string) null.Float {
	v, ok := r.Get(key)
	if !ok {
		return null.Float{}
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Float{}
	}
	return null.FloatFrom(f)
}

// Int reads a numeric field truncated to an integer.
func (r Record) Int(key string) null.Int {
	f := r.Float(key)
	if !f.Valid {
		return null.Int{}
	}
	return null.IntFrom(int64(f.Float64))
}

// String reads a string field. Empty strings read as null.
func (r Record) String(key string) null.String {
	v, ok := r.Get(key)
	if !ok {
		return null.String{}
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// AsRecord returns v as a Record when it is a well-formed snapshot.
func AsRecord(v any) (Record, bool) {
	switch r := v.(type) {
	case Record:
		return r, r != nil
	case map[string]any:
		return Record(r), r != nil
	}
	return nil, false
}

// Quotes maps a requested symbol to whatever the provider returned for it.
// Values that are not records (e.g. an upstream error string) are malformed.
type Quotes map[string]any

// Bar is one row of a historical series as returned by a provider.
type Bar struct {
	Time   null.Time
	Open   null.Float
	High   null.Float
	Low    null.Float
	Close  null.Float
	Volume null.Int
}

// Provider is an upstream market data source. FetchQuotes serves a whole
// batch in one call; symbols it has no data for are left out of the result.
//
//go:generate mockgen -package=marketdata_test -destination=../marketdata/mock_provider_test.go marketquote/internal/provider Provider
type Provider interface {
	Name() string
	FetchQuotes(ctx context.Context, symbols []string) (Quotes, error)
	FetchHistory(ctx context.Context, symbol, period, interval string) ([]Bar, error)
}
