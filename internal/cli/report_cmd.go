package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arbr39/kaizen/internal/cli/formatter"
)

func newWeekCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Summarise the last seven days of rituals",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			w, err := e.app.Reports.Week(ctx, e.accountID(), e.app.Now().In(e.app.Config.Location))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatWeek(w))
			return nil
		},
	}
}

func newHabitsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "habits",
		Short: "Show exercise and eating streaks and average sleep times",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			h, err := e.app.Reports.Habits(ctx, e.accountID(), e.app.Now().In(e.app.Config.Location))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatHabits(h))
			return nil
		},
	}
}
