// Package teatest drives bubbletea models synchronously in tests.
//
// Update is called directly and returned Cmds are run inline, so a test can
// type a line into the kaizen shell and inspect the model afterwards without
// a tea.Program or a terminal.
package teatest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// maxDepth bounds Cmd chains so a model that keeps scheduling work cannot
// hang a test.
const maxDepth = 64

// cmdTimeout skips Cmds that wait on timers, such as cursor blinks.
const cmdTimeout = 10 * time.Millisecond

// Driver owns a model and feeds it messages.
type Driver struct {
	t     *testing.T
	model tea.Model

	// Quit is set once tea.Quit has been returned by the model.
	Quit bool
	// Steps counts messages delivered to Update, drained ones included.
	Steps int
}

type Option func(*Driver)

// WithSize delivers a WindowSizeMsg before anything else.
func WithSize(w, h int) Option {
	return func(d *Driver) {
		d.deliver(tea.WindowSizeMsg{Width: w, Height: h}, 0)
	}
}

// New wraps model and runs its Init command.
func New(t *testing.T, model tea.Model, opts ...Option) *Driver {
	t.Helper()
	d := &Driver{t: t, model: model}
	for _, opt := range opts {
		opt(d)
	}
	d.run(model.Init(), 0)
	return d
}

// Model returns the latest model value.
func (d *Driver) Model() tea.Model {
	return d.model
}

// View renders the latest model.
func (d *Driver) View() string {
	return d.model.View()
}

// Send delivers msg and drains whatever it schedules. Messages after quit
// are dropped.
func (d *Driver) Send(msg tea.Msg) {
	d.t.Helper()
	if d.Quit {
		return
	}
	d.deliver(msg, 0)
}

// Key sends a special key such as tea.KeyEnter or tea.KeyUp.
func (d *Driver) Key(k tea.KeyType) {
	d.t.Helper()
	d.Send(tea.KeyMsg{Type: k})
}

// Type sends s one rune at a time.
func (d *Driver) Type(s string) {
	d.t.Helper()
	for _, r := range s {
		d.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// Line types s and presses enter, the way a user submits a shell line.
func (d *Driver) Line(s string) {
	d.t.Helper()
	d.Type(s)
	d.Key(tea.KeyEnter)
}

func (d *Driver) deliver(msg tea.Msg, depth int) {
	next, cmd := d.model.Update(msg)
	d.model = next
	d.Steps++
	d.run(cmd, depth+1)
}

func (d *Driver) run(cmd tea.Cmd, depth int) {
	if cmd == nil {
		return
	}
	if depth >= maxDepth {
		d.t.Logf("teatest: command chain deeper than %d, stopping", maxDepth)
		return
	}

	msg := runWithTimeout(cmd)
	switch msg := msg.(type) {
	case nil:
		return
	case tea.BatchMsg:
		for _, sub := range msg {
			d.run(sub, depth+1)
		}
	case tea.QuitMsg:
		d.Quit = true
	default:
		if isBlink(msg) {
			return
		}
		d.deliver(msg, depth)
	}
}

func runWithTimeout(cmd tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(cmdTimeout):
		return nil
	}
}

// isBlink matches the unexported cursor blink messages from bubbles.
func isBlink(msg tea.Msg) bool {
	return strings.Contains(strings.ToLower(fmt.Sprintf("%T", msg)), "blink")
}
