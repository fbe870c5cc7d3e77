package main

import "marketquote/internal/cli"

func main() { cli.Main(cli.Quote) }
