// Package main provides the entry point for the ttt CLI tool.
// It delegates execution to the cmd package.
package main

import (
	"ttt/cmd"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=0.0.2 -X main.commit=$(git rev-parse --short HEAD) -X main.date=$(date -u +%F)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.Version = version
	cmd.Commit = commit
	cmd.Date = date
	cmd.Execute()
}
