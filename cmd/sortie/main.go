package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/roach88/sortie/internal/cli"
)

func main() {
	// A .env file is optional; the environment alone is enough.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			// cobra usage errors and the like
			cmd.PrintErrln("Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
