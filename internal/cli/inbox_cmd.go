package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbr39/kaizen/internal/cli/formatter"
	"github.com/arbr39/kaizen/internal/domain"
)

func newInboxCmd(e *env) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List or capture inbox items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			items, err := e.app.Inbox.List(ctx, e.accountID(), domain.InboxStatus(status))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatInbox(items, e.app.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(domain.InboxPending), "pending, someday or processed")

	cmd.AddCommand(&cobra.Command{
		Use:   "add <text>",
		Short: "Capture a thought",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			item, err := e.app.Inbox.Capture(ctx, e.accountID(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Captured: %s\n", item.Text)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "done <n>",
		Short: "Complete the nth pending item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			pending, err := e.app.Inbox.List(ctx, e.accountID(), domain.InboxPending)
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 || n > len(pending) {
				return fmt.Errorf("no pending item #%s", args[0])
			}
			res, err := e.app.Inbox.Complete(ctx, e.accountID(), pending[n-1].ID)
			if err != nil {
				return err
			}
			if res.Credited() {
				fmt.Fprintf(cmd.OutOrStdout(), "Done! %s\n", formatter.Amount(res.Amount))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Done.")
			}
			return nil
		},
	})
	return cmd
}
