package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	sqliteRepo "github.com/sakif/userbook/internal/repository/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqliteRepo.DB, logger *slog.Logger) error {
			if err := db.Migrate(); err != nil {
				return err
			}
			return logVersion(db, logger, "migrations applied")
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations (drops the users table)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqliteRepo.DB, logger *slog.Logger) error {
			if err := db.Rollback(); err != nil {
				return err
			}
			return logVersion(db, logger, "migrations reverted")
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sqliteRepo.DB, logger *slog.Logger) error {
			version, dirty, err := db.SchemaVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d", version)
			if dirty {
				fmt.Fprint(cmd.OutOrStdout(), " (dirty)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		})
	},
}

// withDB opens the configured database, runs fn, and closes it.
func withDB(fn func(db *sqliteRepo.DB, logger *slog.Logger) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := sqliteRepo.New(cfg.DatabaseURL, sqliteRepo.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(db, logger)
}

func logVersion(db *sqliteRepo.DB, logger *slog.Logger, msg string) error {
	version, dirty, err := db.SchemaVersion()
	if err != nil {
		return err
	}
	logger.Info(msg, slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
