// Package main is the single-binary entrypoint for the Fare gamification
// engine: one binary serving the API plus its operator tools.
package main

import "github.com/sharedtable/fare/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
