// Package main is the single-binary entrypoint for islandcalc.
package main

import "github.com/islandcalc/islandcalc/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
