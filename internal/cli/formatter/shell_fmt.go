package formatter

import (
	"fmt"
	"strings"
)

// FormatShellWelcome renders the banner shown on shell startup.
func FormatShellWelcome(account string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(StylePurple.Render("  kaizen") + Dim("  ("+account+")") + "\n")
	b.WriteString(StyleDim.Render("  ─────────────────────────────") + "\n\n")
	b.WriteString("  " + StyleGreen.Render("/begin morning") + StyleDim.Render("   Plan your day") + "\n")
	b.WriteString("  " + StyleGreen.Render("/begin evening") + StyleDim.Render("   Reflect on it") + "\n")
	b.WriteString("  " + StyleGreen.Render("/inbox <text>") + StyleDim.Render("    Capture a thought") + "\n")
	b.WriteString("  " + StyleGreen.Render("/balance") + StyleDim.Render("         Check your balance") + "\n")
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("  Type 'help' for all commands, 'exit' to quit.") + "\n")
	return b.String()
}

type helpCategory struct {
	title    string
	commands [][]string
}

func renderHelpCategory(cat helpCategory) string {
	var b strings.Builder
	b.WriteString("\n " + StyleHeader.Render(strings.ToUpper(cat.title)) + "\n")
	for _, c := range cat.commands {
		b.WriteString(fmt.Sprintf("  %-24s %s\n", StyleGreen.Render(c[0]), StyleDim.Render(c[1])))
	}
	return b.String()
}

// FormatShellHelp renders the shell-only command reference. Chat commands
// are listed by /help.
func FormatShellHelp() string {
	categories := []helpCategory{
		{
			title: "Shell",
			commands: [][]string{
				{"additem", "Add a reward item with a form"},
				{"history", "Show recent transactions"},
				{"clear", "Clear the screen"},
				{"exit / quit", "Quit the shell"},
			},
		},
		{
			title: "Rituals",
			commands: [][]string{
				{"/begin <ritual>", "morning, evening, triage, weekly, monthly"},
				{"skip / back / cancel", "Navigate the current ritual"},
			},
		},
		{
			title: "Progress",
			commands: [][]string{
				{"/week", "Last seven days of entries and tasks"},
				{"/habits", "Exercise and eating streaks, sleep times"},
			},
		},
	}
	var b strings.Builder
	for _, cat := range categories {
		b.WriteString(renderHelpCategory(cat))
	}
	b.WriteString("\n" + Dim("  Anything else is sent as a chat message; /help lists chat commands.") + "\n")
	return b.String()
}
