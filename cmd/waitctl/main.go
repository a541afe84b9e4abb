package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpggio/waitwatch/internal/app"
	"github.com/rpggio/waitwatch/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "waitctl",
		Short:   "Operator tools for waitwatch",
		Version: app.Version,
		Long: `waitctl works directly on the waitwatch database named by the usual
WAITWATCH_* configuration (WAITWATCH_CONFIG_PATH, WAITWATCH_DB_PATH, ...).`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(cli.SimulateCmd())
	rootCmd.AddCommand(cli.PredictCmd())
	rootCmd.AddCommand(cli.OverviewCmd())
	rootCmd.AddCommand(cli.ReplayCmd())
	rootCmd.AddCommand(cli.APIKeyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
