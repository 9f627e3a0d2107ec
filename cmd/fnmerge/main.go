// Command fnmerge is the fragment-network-merges command-line tool: it
// expands fragment pairs against the fragment network and filters the
// resulting merge candidates in 3D.
package main

import (
	"os"

	"github.com/kate-fie/fragment-network-merges/internal/interfaces/cli"
)

// Populated at build time via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = gitCommit
	cli.BuildDate = buildDate

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
