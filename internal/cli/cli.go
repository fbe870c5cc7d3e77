// Package cli is the process boundary shared by the quote and history
// commands. Every run prints exactly one JSON document to stdout.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"marketquote/internal/config"
	"marketquote/internal/logging"
	"marketquote/internal/marketdata"
	"marketquote/internal/normalize"
	"marketquote/internal/provider"
	"marketquote/internal/upstream"
)

// Command describes one entry point.
type Command struct {
	Name    string
	Args    string // positional argument synopsis for the usage message
	MinArgs int
	MaxArgs int // 0 means unbounded
	Run     func(ctx context.Context, svc *marketdata.Service, cfg config.Config, args []string) (any, error)
}

func (c Command) usage() string {
	return fmt.Sprintf("Usage: %s %s", c.Name, c.Args)
}

type errorBody struct {
	Error string `json:"error"`
}

// Runner executes a Command against injectable streams and provider.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// NewProvider defaults to upstream.New.
	NewProvider func(cfg config.Config, loc *time.Location) (provider.Provider, error)
}

// Main runs cmd with the process arguments and exits with its status.
func Main(cmd Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Runner{Stdout: os.Stdout, Stderr: os.Stderr}.Run(ctx, cmd, os.Args[1:])
	stop()
	os.Exit(code)
}

// Run returns the process exit status: 0 on success and on recoverable
// result errors, 1 on usage, configuration and operation-fatal errors.
func (r Runner) Run(ctx context.Context, cmd Command, args []string) int {
	fs := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", os.Getenv("MARKETQUOTE_CONFIG"), "path to config.json (optional)")
	fs.String("provider", "", "market data provider: yahoo or financego")
	fs.String("timezone", "", "timezone for naive timestamps (default Local)")
	fs.Int("timeout", 0, "request timeout seconds")
	fs.String("base-url", "", "Yahoo Finance base URL")
	fs.String("log-level", "", "log level written to stderr")
	fs.Bool("dev-log", false, "human readable logs")

	if err := fs.Parse(args); err != nil {
		return r.fail(errors.New(cmd.usage()))
	}
	positional := fs.Args()
	if len(positional) < cmd.MinArgs || (cmd.MaxArgs > 0 && len(positional) > cmd.MaxArgs) {
		return r.fail(errors.New(cmd.usage()))
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return r.fail(err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return r.fail(err)
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("cmd", cmd.Name), zap.String("run_id", uuid.NewString()))

	loc, err := cfg.Location()
	if err != nil {
		return r.fail(err)
	}
	newProvider := r.NewProvider
	if newProvider == nil {
		newProvider = upstream.New
	}
	p, err := newProvider(cfg, loc)
	if err != nil {
		return r.fail(err)
	}
	svc := marketdata.New(p, loc, log)

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	out, err := cmd.Run(ctx, svc, cfg, positional)
	if err != nil {
		log.Info("command returned error", zap.Error(err))
		return r.fail(err)
	}
	if err := r.write(out); err != nil {
		log.Error("write result", zap.Error(err))
		return 1
	}
	return 0
}

func (r Runner) fail(err error) int {
	_ = r.write(errorBody{Error: err.Error()})
	return ExitCode(err)
}

func (r Runner) write(v any) error {
	enc := json.NewEncoder(r.Stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ExitCode maps an operation error to a process status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ne *normalize.Error
	if errors.As(err, &ne) && !ne.Fatal() {
		return 0
	}
	return 1
}

// ParseSymbols upper-cases symbols, splitting comma separated lists and
// dropping blanks.
func ParseSymbols(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		for _, s := range strings.Split(a, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
