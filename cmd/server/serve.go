package main

import (
	"fmt"

	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/userbook/internal/repository/sqlite"
	"github.com/sakif/userbook/internal/server"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		srv, err := server.New(server.Config{
			Addr:   cfg.Addr,
			DBPath: cfg.DatabaseURL,
			DBOptions: sqliteRepo.Options{
				MaxOpenConns:    cfg.DBMaxOpenConns,
				MaxIdleConns:    cfg.DBMaxIdleConns,
				ConnMaxLifetime: cfg.DBConnMaxLifetime,
				BusyTimeout:     sqliteRepo.DefaultOptions().BusyTimeout,
			},
			Workers:     cfg.Workers,
			SkipMigrate: skipMigrate,
		}, logger)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		// Start blocks until SIGINT/SIGTERM or a listen error.
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false,
		"Do not apply pending migrations at startup (the users table must already exist)")

	rootCmd.AddCommand(serveCmd)
}
