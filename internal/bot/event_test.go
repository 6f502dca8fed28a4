package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arbr39/kaizen/internal/dialog"
	"github.com/arbr39/kaizen/internal/domain"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		in      string
		command string
		arg     string
	}{
		{"/begin morning", CmdBegin, "morning"},
		{"!buy  Movie night ", CmdBuy, "Movie night"},
		{"/Balance", CmdBalance, ""},
		{"skip", CmdSkip, ""},
		{"  Back ", CmdBack, ""},
		{"skip the gym", CmdSubmit, "skip the gym"},
		{"write report", CmdSubmit, "write report"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			ev := ParseText("a", "A", tt.in)
			assert.Equal(t, tt.command, ev.Command)
			assert.Equal(t, tt.arg, ev.Arg)
			assert.Equal(t, "a", ev.AccountID)
		})
	}
}

func TestResolveRitual(t *testing.T) {
	r, ok := ResolveRitual("Evening")
	assert.True(t, ok)
	assert.Equal(t, domain.RitualEvening, r)

	r, ok = ResolveRitual("monthly_assessment")
	assert.True(t, ok)
	assert.Equal(t, domain.RitualMonthly, r)

	_, ok = ResolveRitual("lunch")
	assert.False(t, ok)
}

func TestRender(t *testing.T) {
	out := Render(&dialog.Reply{
		Title:     "Evening reflection",
		Prompt:    "Which tasks?",
		Input:     "choice",
		Choices:   []dialog.Choice{{ID: "1", Label: "gym"}},
		Multi:     true,
		CanGoBack: true,
	})
	assert.Contains(t, out, "[1] gym")
	assert.Contains(t, out, "separated by commas")
	assert.Contains(t, out, "`back`")
	assert.NotContains(t, out, "`skip`")

	out = Render(&dialog.Reply{Input: "number", Min: 1, Max: 10, Skippable: true, Prompt: "Rate"})
	assert.Contains(t, out, "1-10")
	assert.Contains(t, out, "`skip`")

	out = Render(&dialog.Reply{Title: "Weekly review", Done: true, Summary: "Saved."})
	assert.Equal(t, "**Weekly review** complete\nSaved.", out)

	assert.Empty(t, Render(nil))
}
