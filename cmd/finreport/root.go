package main

import (
	"fmt"
	"os"

	"github.com/BerylCAtieno/finreport/internal/config"
	"github.com/BerylCAtieno/finreport/internal/db"
	"github.com/BerylCAtieno/finreport/internal/repository"
	"github.com/BerylCAtieno/finreport/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Populated by the root command before any subcommand runs.
var (
	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "finreport",
	Short: "Extract financial figures from PDF reports",
	Long: `finreport runs the same extraction pipeline as the HTTP service over
local files, directories or an S3 prefix and writes the report to disk.

Configuration is read from the environment (and an optional .env file),
using the same variables as the server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded

		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = cfg.LogLevel
		}
		logger = utils.NewLoggerWithWriter(os.Stderr, level)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("Command execution failed", "error", err)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL")
}

// openRuns returns the run history store when DATABASE_URL is set.
func openRuns() (repository.RunRepository, *sqlx.DB, error) {
	if !cfg.AuditEnabled() {
		return nil, nil, nil
	}

	if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return repository.NewRunRepository(database), database, nil
}
