// Command quotes prints normalized quotes for one or more symbols as a
// single JSON object keyed by symbol. A symbol the provider has no data for
// gets an error entry instead of failing the batch.
package main

import "marketquote/internal/cli"

func main() { cli.Main(cli.Quotes) }
