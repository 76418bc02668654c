package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/mixtape/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	app := rootCommand(runner)
	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		switch {
		case errors.Is(err, shared.ErrAuthRequired), shared.IsAuthError(err):
			logger.Fatal("spotify session expired, run `mixtape auth login`", "error", err)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}
