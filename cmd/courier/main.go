package main

import "github.com/kroma-labs/courier-go/internal/cli"

// Set at build time with -ldflags "-X main.version=... -X main.buildTime=...".
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Execute(version, buildTime)
}
