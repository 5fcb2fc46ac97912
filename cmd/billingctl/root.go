/*
root.go - billingctl command-line interface

PURPOSE:
  Operator tooling against a billing database file, without the HTTP server:
  generate reports, manage backups, factory-reset. Every subcommand opens
  the SQLite database named by --db, does its work, and exits.

SEE ALSO:
  - report.go: report generation subcommand
  - backup.go: backup lifecycle subcommands
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/crewtrack/billing-engine/backup"
	"github.com/crewtrack/billing-engine/store/sqlite"
)

var version = "1.0.0"

var dbPath string

var rootCmd = &cobra.Command{
	Use:          "billingctl",
	Short:        "Billing engine operations CLI",
	Long:         "billingctl works directly against a billing database file: generate reconciled reports, manage the retained backup list, and run a factory reset.",
	Version:      version,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "billing.db", "SQLite database path")
}

// openStore opens the database and builds the backup manager the subcommands
// share. The caller closes the store.
func openStore() (*sqlite.Store, *backup.Manager, error) {
	st, err := sqlite.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.WarnLevel).With().Timestamp().Logger()

	var opts []backup.Option
	if secret := os.Getenv("RESET_PASSWORD"); secret != "" {
		opts = append(opts, backup.WithResetSecret(secret))
	}
	return st, backup.NewManager(st, st, log, opts...), nil
}
