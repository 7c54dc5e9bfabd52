package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/NickArm/Invoice-System-sub001/internal/app"
	"github.com/NickArm/Invoice-System-sub001/internal/report"
)

func reportCmd() *cobra.Command {
	var (
		userRef     string
		from, to    string
		typ         string
		recipient   string
		message     string
		attachments bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Email an invoice summary for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fromDate, err := time.Parse(time.DateOnly, from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}

			toDate, err := time.Parse(time.DateOnly, to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				u, err := a.Users.Lookup(ctx, userRef)
				if err != nil {
					return fmt.Errorf("finding user %q: %w", userRef, err)
				}

				out, err := a.Reports.Send(ctx, report.Request{
					UserID:             u.ID,
					From:               fromDate,
					To:                 toDate,
					Type:               report.Type(typ),
					Recipient:          recipient,
					Message:            message,
					IncludeAttachments: attachments,
				})
				if err != nil {
					return err
				}

				totals := out.Summary.Format()
				fmt.Fprintf(cmd.OutOrStdout(), "sent %q to %s: income=%s expense=%s net=%s attachments=%d\n",
					out.Subject, recipient, totals.IncomeSum, totals.ExpenseSum, totals.Net, out.Attached)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&userRef, "user", "", "report owner (uuid or email)")
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&typ, "type", string(report.TypeAll), "all, income or expense")
	cmd.Flags().StringVar(&recipient, "to-email", "", "recipient address")
	cmd.Flags().StringVar(&message, "message", "", "note included in the email body")
	cmd.Flags().BoolVar(&attachments, "attachments", false, "zip every document of the period")

	for _, name := range []string{"user", "from", "to", "to-email"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}
