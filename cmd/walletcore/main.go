// Package main is the entry point for the walletcore operator CLI.
package main

import (
	"os"

	"github.com/aibtc/wallet-core/internal/cli"
)

// Build info variables set via ldflags during build.
//
//nolint:gochecknoglobals // required for ldflags injection at build time
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := cli.Execute(cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    buildDate,
	}); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
