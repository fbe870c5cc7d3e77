package marketdata

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"marketquote/internal/normalize"
	"marketquote/internal/provider"
)

// Service runs the four market data operations: one provider call each,
// followed by normalization. Provider failures are converted into
// *normalize.Error values and never retried.
type Service struct {
	provider provider.Provider
	loc      *time.Location
	log      *zap.Logger
}

func New(p provider.Provider, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{provider: p, loc: loc, log: log.With(zap.String("provider", p.Name()))}
}

// BatchQuotes fetches every symbol in one provider call.
func (s *Service) BatchQuotes(ctx context.Context, symbols []string) (normalize.Batch, error) {
	if len(symbols) == 0 {
		return normalize.Batch{}, &normalize.Error{Kind: normalize.Usage, Op: normalize.OpBatch, Err: errors.New("no symbols given")}
	}
	raw, err := s.provider.FetchQuotes(ctx, symbols)
	if err != nil {
		s.log.Warn("batch quote fetch failed", zap.Strings("symbols", symbols), zap.Error(err))
		return normalize.Batch{}, &normalize.Error{Kind: normalize.Upstream, Op: normalize.OpBatch, Err: err}
	}
	batch, err := normalize.NormalizeBatchQuotes(symbols, raw, s.loc, s.provider.Name())
	if err != nil {
		return normalize.Batch{}, err
	}
	s.log.Debug("batch quotes", zap.Int("requested", len(symbols)), zap.Int("received", len(raw)))
	return batch, nil
}

// Quote fetches a single symbol.
func (s *Service) Quote(ctx context.Context, symbol string) (normalize.SingleQuote, error) {
	if symbol == "" {
		return normalize.SingleQuote{}, &normalize.Error{Kind: normalize.Usage, Op: normalize.OpQuote, Err: errors.New("no symbol given")}
	}
	raw, err := s.provider.FetchQuotes(ctx, []string{symbol})
	if err != nil {
		s.log.Warn("quote fetch failed", zap.String("symbol", symbol), zap.Error(err))
		return normalize.SingleQuote{}, &normalize.Error{Kind: normalize.Upstream, Op: normalize.OpQuote, Symbol: symbol, Err: err}
	}
	return normalize.NormalizeQuote(symbol, raw)
}

// History fetches a daily/periodic bar series.
func (s *Service) History(ctx context.Context, symbol, period, interval string) (normalize.History, error) {
	bars, err := s.history(ctx, normalize.OpHistory, symbol, period, interval)
	if err != nil {
		return normalize.History{}, err
	}
	return normalize.NormalizeHistory(symbol, period, interval, bars)
}

// Intraday fetches a bar series in the chart-oriented parallel-array form.
func (s *Service) Intraday(ctx context.Context, symbol, period, interval string) (normalize.Intraday, error) {
	bars, err := s.history(ctx, normalize.OpIntraday, symbol, period, interval)
	if err != nil {
		return normalize.Intraday{}, err
	}
	return normalize.NormalizeIntraday(symbol, period, interval, bars)
}

func (s *Service) history(ctx context.Context, op normalize.Op, symbol, period, interval string) ([]provider.Bar, error) {
	if symbol == "" {
		return nil, &normalize.Error{Kind: normalize.Usage, Op: op, Err: errors.New("no symbol given")}
	}
	bars, err := s.provider.FetchHistory(ctx, symbol, period, interval)
	if err != nil {
		s.log.Warn("history fetch failed",
			zap.String("symbol", symbol),
			zap.String("period", period),
			zap.String("interval", interval),
			zap.Error(err))
		return nil, &normalize.Error{Kind: normalize.Upstream, Op: op, Symbol: symbol, Err: err}
	}
	s.log.Debug("history", zap.String("symbol", symbol), zap.Int("bars", len(bars)))
	return bars, nil
}
