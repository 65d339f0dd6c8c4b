package main

import (
	"os"

	"github.com/aretw0/waypoint/cmd/waypoint/cmd"
)

// Version information, set by the release build.
var (
	version = ""
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
