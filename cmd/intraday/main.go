// Command intraday prints a chart-oriented bar series for one symbol.
package main

import "marketquote/internal/cli"

func main() { cli.Main(cli.Intraday) }
