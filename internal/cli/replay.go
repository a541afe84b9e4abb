package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rpggio/waitwatch/internal/ingest"
)

// ReplayCmd returns the replay command that feeds recorded frames through the lifecycle loop.
func ReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay recorded NDJSON frames into the session store",
		Long: `Read one JSON frame per line from FILE ("-" for stdin) and process them
in order. Frames should carry captured_at; frames without it are stamped with
the current time.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeDB, err := openApp()
			if err != nil {
				return err
			}
			defer closeDB()

			var r io.Reader = os.Stdin
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}

			ctx := cmd.Context()
			before, err := a.Sessions.Count(ctx)
			if err != nil {
				return err
			}
			if err := a.Lifecycle.Run(ctx, ingest.NewNDJSONSource(r)); err != nil {
				return err
			}
			after, err := a.Sessions.Count(ctx)
			if err != nil {
				return err
			}
			open, err := a.Sessions.ListOpen(ctx, "")
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Replay complete: %d new session(s), %d still open\n", after-before, len(open))
			return nil
		},
	}
	return cmd
}
