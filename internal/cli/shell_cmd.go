package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newShellCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Chat with the bot in the terminal",
		Long: `Start an interactive shell that talks to the same dispatcher as the
Discord bot. Rituals, the inbox and the shop all work here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.Context(), e)
		},
	}
}

func runShell(ctx context.Context, e *env) error {
	if err := e.ensureAccount(ctx); err != nil {
		return err
	}
	m := newShellModel(ctx, e, newShellHistory(defaultHistoryPath()))
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	return err
}
