// Package main is the single-binary entrypoint for openshare.
package main

import "github.com/openshare-go/openshare/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
