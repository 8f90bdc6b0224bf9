// Package main is the regsynth command itself.
package main

import (
	"os"

	"go.viam.com/regsynth/cli"
	"go.viam.com/regsynth/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logger := logging.NewLogger("regsynth")
		logger.Errorw("command failed", "error", err)
		//nolint:errcheck
		logger.Sync()
		os.Exit(1)
	}
}
