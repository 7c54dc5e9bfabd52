package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/NickArm/Invoice-System-sub001/internal/app"
	"github.com/NickArm/Invoice-System-sub001/internal/ingest"
)

func ingestCmd() *cobra.Command {
	var userRef string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import invoices from every enabled mailbox",
		Long: `Connects to each user's mailbox, extracts invoice attachments and stores
them. Per-user failures are printed but do not change the exit status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var filter ingest.Filter

				if userRef != "" {
					u, err := a.Users.Lookup(ctx, userRef)
					if err != nil {
						return fmt.Errorf("finding user %q: %w", userRef, err)
					}

					filter.UserID = &u.ID
				}

				results, err := a.Ingest.Run(ctx, filter)
				if err != nil {
					return err
				}

				printResults(cmd.OutOrStdout(), results)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userRef, "user", "", "only ingest this user (uuid or email)")

	return cmd
}

func printResults(w io.Writer, results []ingest.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "no mailboxes to ingest")
		return
	}

	for _, res := range results {
		switch r := res.(type) {
		case *ingest.Completed:
			fmt.Fprintf(w, "%s: processed=%d skipped=%d total=%d errors=%d\n",
				r.Email, r.Processed, r.Skipped, r.TotalMessages, len(r.Errors))

			for _, e := range r.Errors {
				fmt.Fprintf(w, "  - %s\n", e)
			}

			for _, rv := range r.Review {
				fmt.Fprintf(w, "  ? message %s imported as %s, review against %d invoice(s) of the same day\n",
					rv.MessageID, rv.InvoiceID, len(rv.Candidates))
			}
		case *ingest.Failed:
			fmt.Fprintf(w, "%s: failed: %s\n", r.Email, r.Message)
		}
	}
}
