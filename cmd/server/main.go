// Package main is the entry point for the userbook server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (environment, optional .env file)
// 2. Create dependencies (logger, database, worker pool)
// 3. Start the application
//
// All actual logic lives in internal/. The commands are:
//
//	userbook serve            run the HTTP service
//	userbook migrate up       create the users table
//	userbook migrate down     drop it again
//	userbook migrate version  print the applied schema version
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/userbook/internal/config"
	"github.com/sakif/userbook/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:          "userbook",
	Short:        "A minimal users service backed by SQLite",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and builds the logger every command uses.
// A missing DATABASE_URL fails here, before anything opens a socket or a file.
func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	return cfg, logger, nil
}
