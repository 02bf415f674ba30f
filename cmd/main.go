package main

import (
	"context"
	"os"

	"github.com/temerold/heart-all/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:    "heartall",
		Usage:   "Save every track of a Spotify playlist to your library",
		Version: "1.0.0",
		Flags: []cli.Flag{
			configFlag(),
		},
		Action:   runner.Save,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Errorf("run failed: %v", err)
		os.Exit(1)
	}
}
