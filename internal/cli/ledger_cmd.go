package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbr39/kaizen/internal/cli/formatter"
	"github.com/arbr39/kaizen/internal/domain"
)

func newBalanceCmd(e *env) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show balance, recent earnings and streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			st, err := e.app.Ledger.Stats(ctx, e.accountID(), e.app.Now().In(e.app.Config.Location), days)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatStats(st))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Earnings window in days")
	return cmd
}

func newHistoryCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			txs, err := e.app.Ledger.History(ctx, e.accountID(), limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHistory(txs, e.app.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of transactions")
	return cmd
}

func newRatesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Show the reward rate per trigger",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			rates, err := e.app.Ledger.Rates(ctx, e.accountID())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRates(rates))
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <trigger> <amount>",
		Short: "Override one rate for this account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			trigger := domain.Trigger(args[0])
			if !domain.IsRateTrigger(trigger) {
				return fmt.Errorf("unknown trigger %q", args[0])
			}
			amount, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			if err := e.app.Ledger.SetRates(ctx, e.accountID(), domain.Rates{trigger: amount}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %d\n", trigger, amount)
			return nil
		},
	})
	return cmd
}

func newBuyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item>",
		Short: "Spend balance on a reward item (name or id)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			item, err := e.app.Items.Resolve(ctx, e.accountID(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if _, err := e.app.Ledger.Spend(ctx, e.accountID(), item.ID); err != nil {
				if errors.Is(err, domain.ErrInsufficientFunds) {
					balance, _ := e.app.Ledger.Balance(ctx, e.accountID())
					return fmt.Errorf("%s costs %d, balance is %d", item.Name, item.Price, balance)
				}
				return err
			}
			balance, err := e.app.Ledger.Balance(ctx, e.accountID())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Enjoy your %s! %s, balance %d\n", item.Name, formatter.Amount(-item.Price), balance)
			return nil
		},
	}
}

func newLedgerCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Maintenance commands for the ledger",
	}
	cmd.AddCommand(newLedgerVerifyCmd(e), newLedgerAdjustCmd(e))
	return cmd
}

func newLedgerVerifyCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every balance against its transaction sum",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			accounts, err := e.app.Ledger.ListAccounts(ctx, false)
			if err != nil {
				return err
			}
			var rows [][]string
			bad := 0
			for _, acc := range accounts {
				rep, err := e.app.Ledger.Reconcile(ctx, acc.ID)
				if err != nil {
					return err
				}
				status := formatter.StyleGreen.Render("ok")
				if !rep.Consistent() {
					bad++
					status = formatter.StyleRed.Render("MISMATCH")
				}
				rows = append(rows, []string{acc.ID, strconv.FormatInt(rep.Balance, 10), strconv.FormatInt(rep.LedgerSum, 10), status})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"ACCOUNT", "BALANCE", "LEDGER", "STATUS"}, rows))
			if bad > 0 {
				return fmt.Errorf("%d account(s) out of balance", bad)
			}
			return nil
		},
	}
}

func newLedgerAdjustCmd(e *env) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "adjust <amount>",
		Short: "Add a manual correction (negative to debit)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || amount == 0 {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			if _, err := e.app.Ledger.Adjust(ctx, e.accountID(), amount, reason); err != nil {
				return err
			}
			balance, err := e.app.Ledger.Balance(ctx, e.accountID())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Adjusted %s, balance %d\n", formatter.Amount(amount), balance)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual adjustment", "Description stored on the transaction")
	return cmd
}

func newPenaltiesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "penalties <on|off>",
		Short:     "Enable or disable the missed-evening penalty",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			if err := e.ensureAccount(ctx); err != nil {
				return err
			}
			if err := e.app.Ledger.SetPenaltiesEnabled(ctx, e.accountID(), enabled); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Missed-evening penalty %s.\n", args[0])
			return nil
		},
	}
}
