// Command leasectl is the operator CLI for the leasing assistant: an
// interactive chat over the same pipeline the API serves, database upkeep and
// event inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/leasing-assistant/internal/config"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
)

var (
	driverFlag   string
	dsnFlag      string
	logLevelFlag string
	rootCmd      = &cobra.Command{
		Use:           "leasectl",
		Short:         "Operator CLI for the leasing assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// loadConfig reads the environment and applies command line overrides.
func loadConfig() *config.Config {
	cfg := config.Load()
	if driverFlag != "" {
		cfg.DBDriver = driverFlag
	}
	if dsnFlag != "" {
		cfg.DatabaseURL = dsnFlag
	}
	return cfg
}

func newLogger() (*logger.Logger, error) {
	return logger.NewConsole(logLevelFlag)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver: sqlite or postgres (default $DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "Database DSN (default $DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level")

	rootCmd.AddCommand(newChatCmd(), newMigrateCmd(), newSeedCmd(), newHistoryCmd(), newHandoffsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
