package cli

import (
	"context"

	"marketquote/internal/config"
	"marketquote/internal/marketdata"
)

var Quotes = Command{
	Name:    "quotes",
	Args:    "<SYMBOL1> [SYMBOL2] [SYMBOL3] ...",
	MinArgs: 1,
	Run: func(ctx context.Context, svc *marketdata.Service, _ config.Config, args []string) (any, error) {
		return svc.BatchQuotes(ctx, ParseSymbols(args))
	},
}

var Quote = Command{
	Name:    "quote",
	Args:    "<SYMBOL>",
	MinArgs: 1,
	MaxArgs: 1,
	Run: func(ctx context.Context, svc *marketdata.Service, _ config.Config, args []string) (any, error) {
		return svc.Quote(ctx, firstSymbol(args))
	},
}

var History = Command{
	Name:    "history",
	Args:    "<SYMBOL> [period] [interval]",
	MinArgs: 1,
	MaxArgs: 3,
	Run: func(ctx context.Context, svc *marketdata.Service, cfg config.Config, args []string) (any, error) {
		period, interval := window(args, cfg.History)
		return svc.History(ctx, firstSymbol(args), period, interval)
	},
}

var Intraday = Command{
	Name:    "intraday",
	Args:    "<SYMBOL> [period] [interval]",
	MinArgs: 1,
	MaxArgs: 3,
	Run: func(ctx context.Context, svc *marketdata.Service, cfg config.Config, args []string) (any, error) {
		period, interval := window(args, cfg.Intraday)
		return svc.Intraday(ctx, firstSymbol(args), period, interval)
	},
}

func firstSymbol(args []string) string {
	if s := ParseSymbols(args[:1]); len(s) > 0 {
		return s[0]
	}
	return ""
}

// window reads the optional period and interval arguments after the symbol.
func window(args []string, def config.Window) (string, string) {
	period, interval := def.Period, def.Interval
	if len(args) > 1 && args[1] != "" {
		period = args[1]
	}
	if len(args) > 2 && args[2] != "" {
		interval = args[2]
	}
	return period, interval
}
