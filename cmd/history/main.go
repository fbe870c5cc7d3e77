// Command history prints daily bars for one symbol as JSON.
//
//	history <SYMBOL> [period] [interval]
package main

import "marketquote/internal/cli"

func main() { cli.Main(cli.History) }
