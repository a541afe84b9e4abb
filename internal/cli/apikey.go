package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// APIKeyCmd returns the apikey command group.
func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage bearer tokens for the HTTP API and MCP endpoint",
	}
	cmd.AddCommand(apiKeyAddCmd())
	cmd.AddCommand(apiKeyRevokeCmd())
	return cmd
}

func apiKeyAddCmd() *cobra.Command {
	var token, description string

	cmd := &cobra.Command{
		Use:   "add CLIENT",
		Short: "Create a token for CLIENT and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeDB, err := openApp()
			if err != nil {
				return err
			}
			defer closeDB()

			if token == "" {
				token = uuid.NewString()
			}
			if err := a.APIKeys.Add(cmd.Context(), token, args[0], description); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s token for %s: %s\n", color.GreenString("✓"), args[0], token)
			fmt.Fprintln(cmd.OutOrStdout(), color.YellowString("Store it now; only its hash is kept."))
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token to register (default a random UUID)")
	cmd.Flags().StringVar(&description, "description", "", "Free-form note")

	return cmd
}

func apiKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke CLIENT",
		Short: "Delete every token belonging to CLIENT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeDB, err := openApp()
			if err != nil {
				return err
			}
			defer closeDB()

			n, err := a.APIKeys.Revoke(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d token(s) for %s\n", n, args[0])
			return nil
		},
	}
}
