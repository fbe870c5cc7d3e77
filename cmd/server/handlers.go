package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketquote/internal/cli"
	"marketquote/internal/config"
	"marketquote/internal/marketdata"
	"marketquote/internal/normalize"
)

const maxSymbols = 1000

type server struct {
	svc     *marketdata.Service
	cfg     config.Config
	log     *zap.Logger
	timeout time.Duration
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /api/quotes", s.handleGetQuotes)
	mux.HandleFunc("POST /api/quotes", s.handlePostQuotes)
	mux.HandleFunc("GET /api/quote", s.handleQuote)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/intraday", s.handleIntraday)

	return withJSONHeaders(withRequestLog(s.log, withGzip(recoverPanic(s.log, limitBody(mux)))))
}

func (s *server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("symbols")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{"missing symbols query param"})
		return
	}
	s.writeQuotes(w, r, cli.ParseSymbols([]string{q}))
}

type postBody struct {
	Symbols []string `json:"symbols"`
}

func (s *server) handlePostQuotes(w http.ResponseWriter, r *http.Request) {
	var b postBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{"invalid JSON body"})
		return
	}
	s.writeQuotes(w, r, cli.ParseSymbols(b.Symbols))
}

func (s *server) writeQuotes(w http.ResponseWriter, r *http.Request, symbols []string) {
	if len(symbols) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{"symbols cannot be empty"})
		return
	}
	if len(symbols) > maxSymbols {
		writeJSON(w, http.StatusBadRequest, errorBody{"too many symbols (max 1000)"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	batch, err := s.svc.BatchQuotes(ctx, symbols)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	q, err := s.svc.Quote(ctx, symbol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	period, interval := windowParams(r, s.cfg.History)
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	h, err := s.svc.History(ctx, symbol, period, interval)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *server) handleIntraday(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolParam(w, r)
	if !ok {
		return
	}
	period, interval := windowParams(r, s.cfg.Intraday)
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	in, err := s.svc.Intraday(ctx, symbol, period, interval)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func symbolParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbols := cli.ParseSymbols([]string{r.URL.Query().Get("symbol")})
	if len(symbols) != 1 {
		writeJSON(w, http.StatusBadRequest, errorBody{"exactly one symbol query param required"})
		return "", false
	}
	return symbols[0], true
}

func windowParams(r *http.Request, def config.Window) (string, string) {
	period, interval := def.Period, def.Interval
	if v := strings.TrimSpace(r.URL.Query().Get("period")); v != "" {
		period = v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("interval")); v != "" {
		interval = v
	}
	return period, interval
}

// writeError maps recoverable result errors to 404, usage errors to 400 and
// everything else to 502.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var ne *normalize.Error
	if errors.As(err, &ne) {
		switch {
		case ne.Kind == normalize.Usage:
			status = http.StatusBadRequest
		case !ne.Fatal():
			status = http.StatusNotFound
		}
	}
	writeJSON(w, status, errorBody{err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withRequestLog(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Debug("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

// limitBody caps request body size.
func limitBody(next http.Handler) http.Handler {
	const maxBody = 1 << 20
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		next.ServeHTTP(w, r)
	})
}

func recoverPanic(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic", zap.Any("panic", rec), zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, errorBody{"internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
