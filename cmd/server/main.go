// Command server exposes the quote and history operations over HTTP for
// browser clients. Error bodies have the same {"error": ...} shape as the
// command-line tools.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"marketquote/internal/config"
	"marketquote/internal/logging"
	"marketquote/internal/marketdata"
	"marketquote/internal/upstream"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	configPath := fs.String("config", os.Getenv("MARKETQUOTE_CONFIG"), "path to config.json (optional)")
	fs.String("port", "", "listen port")
	fs.String("provider", "", "market data provider: yahoo or financego")
	fs.String("timezone", "", "timezone for naive timestamps (default Local)")
	fs.Int("timeout", 0, "upstream request timeout seconds")
	fs.String("log-level", "", "log level")
	fs.Bool("dev-log", false, "human readable logs")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	p, err := upstream.New(cfg, loc)
	if err != nil {
		return err
	}
	s := &server{
		svc:     marketdata.New(p, loc, log),
		cfg:     cfg,
		log:     log,
		timeout: cfg.RequestTimeout(),
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("provider", p.Name()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
