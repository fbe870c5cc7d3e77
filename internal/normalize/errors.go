package normalize

import "fmt"

// Kind classifies a failure so callers can tell a failed operation from a
// failed entry.
type Kind int

const (
	// Usage is a malformed request, e.g. no symbols.
	Usage Kind = iota + 1
	// Upstream is a provider call that failed outright.
	Upstream
	// NoPriceData is a batch call that returned nothing at all.
	NoPriceData
	// NoData is a symbol missing from the provider response.
	NoData
	// InvalidFormat is a symbol whose record is unusable.
	InvalidFormat
	// NoHistory is an empty bar series.
	NoHistory
)

// Op names the operation an Error came from.
type Op string

const (
	OpBatch    Op = "batch"
	OpQuote    Op = "quote"
	OpHistory  Op = "history"
	OpIntraday Op = "intraday"
)

// Error is returned at each operation boundary. Its message is the exact
// text written into the {"error": ...} document.
type Error struct {
	Kind   Kind
	Op     Op
	Symbol string
	Source string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case Usage:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "invalid request"
	case NoPriceData:
		return fmt.Sprintf("No price data received from %s", e.Source)
	case NoData:
		return fmt.Sprintf("No data found for %s", e.Symbol)
	case InvalidFormat:
		return fmt.Sprintf("Invalid data format for %s", e.Symbol)
	case NoHistory:
		return fmt.Sprintf("No historical data found for %s", e.Symbol)
	}
	switch e.Op {
	case OpBatch:
		return fmt.Sprintf("Failed to fetch batch quotes: %v", e.Err)
	case OpHistory, OpIntraday:
		return fmt.Sprintf("Failed to fetch historical data for %s: %v", e.Symbol, e.Err)
	}
	return fmt.Sprintf("Failed to fetch %s: %v", e.Symbol, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the whole operation failed, as opposed to the
// requested symbol simply having no usable data.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case Usage, Upstream, NoPriceData:
		return true
	}
	return false
}
