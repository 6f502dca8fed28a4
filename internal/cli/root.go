package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arbr39/kaizen/internal/app"
)

const defaultAccount = "local"

// env is the state shared by all commands.
type env struct {
	app           *app.App
	account       string
	isInteractive func() bool
}

// accountID is the ledger account the terminal acts as.
func (e *env) accountID() string {
	return "local:" + e.account
}

func (e *env) ensureAccount(ctx context.Context) error {
	_, err := e.app.Ledger.EnsureAccount(ctx, e.accountID(), e.account)
	return err
}

// NewRootCmd creates the top-level "kaizen" command. With no subcommand
// and an interactive terminal it starts the shell.
func NewRootCmd(a *app.App, isInteractive func() bool) *cobra.Command {
	if isInteractive == nil {
		isInteractive = func() bool { return false }
	}
	e := &env{app: a, isInteractive: isInteractive}

	account := os.Getenv("KAIZEN_ACCOUNT")
	if account == "" {
		account = defaultAccount
	}

	root := &cobra.Command{
		Use:           "kaizen",
		Short:         "Daily rituals, an inbox and a reward ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !e.isInteractive() {
				return cmd.Help()
			}
			return runShell(cmd.Context(), e)
		},
	}
	root.PersistentFlags().StringVar(&e.account, "account", account, "Local account name")
	root.SetGlobalNormalizationFunc(dashedFlags)

	root.AddCommand(
		newServeCmd(e),
		newShellCmd(e),
		newBalanceCmd(e),
		newHistoryCmd(e),
		newWeekCmd(e),
		newHabitsCmd(e),
		newRatesCmd(e),
		newItemsCmd(e),
		newBuyCmd(e),
		newInboxCmd(e),
		newLedgerCmd(e),
		newPenaltiesCmd(e),
	)
	return root
}

// dashedFlags lets --some_flag and --some-flag name the same flag.
func dashedFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// Execute runs the root command and prints errors the way the shell does.
func Execute(ctx context.Context, root *cobra.Command) error {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}
