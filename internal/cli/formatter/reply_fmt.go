package formatter

import (
	"fmt"
	"strings"

	"github.com/arbr39/kaizen/internal/dialog"
)

// FormatReply renders a dialog reply for the terminal.
func FormatReply(r *dialog.Reply) string {
	if r == nil {
		return ""
	}
	if r.Done {
		out := StyleGreen.Render("✔ "+r.Title) + " " + Dim("complete")
		if r.Summary != "" {
			out += "\n" + r.Summary
		}
		return out
	}

	var b strings.Builder
	if r.Resumed {
		b.WriteString(Dim("(resuming "+r.Title+")") + "\n")
	}
	b.WriteString(StyleBold.Render(r.Prompt))
	for _, c := range r.Choices {
		fmt.Fprintf(&b, "\n  %s %s", StyleGreen.Render("["+c.ID+"]"), c.Label)
	}

	var hints []string
	switch {
	case r.Multi:
		hints = append(hints, "comma-separated")
	case r.Input == "number":
		hints = append(hints, fmt.Sprintf("%d-%d", r.Min, r.Max))
	}
	if r.Skippable {
		hints = append(hints, "skip")
	}
	if r.CanGoBack {
		hints = append(hints, "back")
	}
	hints = append(hints, "cancel")
	b.WriteString("\n" + Dim("("+strings.Join(hints, " · ")+")"))
	return b.String()
}

// FormatResponse joins dispatcher text and an optional reply.
func FormatResponse(text string, r *dialog.Reply) string {
	parts := make([]string, 0, 2)
	if text != "" {
		parts = append(parts, text)
	}
	if r != nil {
		parts = append(parts, FormatReply(r))
	}
	return strings.Join(parts, "\n\n")
}
