package bot

import (
	"fmt"
	"strings"

	"github.com/arbr39/kaizen/internal/dialog"
)

// Render draws a reply as plain text for transports without widgets.
func Render(r *dialog.Reply) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if r.Done {
		if r.Title != "" {
			fmt.Fprintf(&b, "**%s** complete\n", r.Title)
		}
		b.WriteString(r.Summary)
		return b.String()
	}

	if r.Resumed {
		fmt.Fprintf(&b, "Resuming %s.\n", r.Title)
	}
	b.WriteString(r.Prompt)
	for _, c := range r.Choices {
		fmt.Fprintf(&b, "\n  [%s] %s", c.ID, c.Label)
	}

	var hints []string
	switch {
	case r.Multi:
		hints = append(hints, "pick several ids separated by commas")
	case r.Input == "number":
		hints = append(hints, fmt.Sprintf("%d-%d", r.Min, r.Max))
	}
	if r.Skippable {
		hints = append(hints, "`skip`")
	}
	if r.CanGoBack {
		hints = append(hints, "`back`")
	}
	hints = append(hints, "`cancel`")
	fmt.Fprintf(&b, "\n(%s)", strings.Join(hints, ", "))
	return b.String()
}
