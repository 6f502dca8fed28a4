package dialog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 8, 21, 30, 0, 0, time.UTC)

func staticPrompt(s string) func(View) string {
	return func(View) string { return s }
}

func goTo(name string) func(View) string {
	return func(View) string { return name }
}

func moodChoices(View) []Choice {
	return []Choice{{ID: "good", Label: "Good"}, {ID: "bad", Label: "Bad"}}
}

// completions records every handler call.
type completions struct {
	mu    sync.Mutex
	calls []Completion
	fail  error
}

func (c *completions) handle(_ context.Context, comp Completion) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return Outcome{}, c.fail
	}
	c.calls = append(c.calls, comp)
	return Outcome{Summary: fmt.Sprintf("done %s", comp.Value("name"))}, nil
}

func (c *completions) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

// newSurvey builds name -> mood -> (bad: reason) -> score.
func newSurvey(done *completions) *Definition {
	return &Definition{
		Name:  "survey",
		Title: "Survey",
		Start: "name",
		Steps: []*Step{
			{Name: "name", Prompt: staticPrompt("Your name?"), Input: Input{Kind: InputText, MaxLen: 20}, Next: goTo("mood")},
			{
				Name:   "mood",
				Prompt: func(v View) string { return "How are you, " + v.Value("name") + "?" },
				Input:  Input{Kind: InputChoice, Choices: moodChoices},
				Next: func(v View) string {
					if v.Value("mood") == "bad" {
						return "reason"
					}
					return "score"
				},
			},
			{Name: "reason", Prompt: staticPrompt("Why?"), Input: Input{Kind: InputText}, Skippable: true, Next: goTo("score")},
			{Name: "score", Prompt: staticPrompt("Score?"), Input: Input{Kind: InputNumber, Min: 1, Max: 5}, Next: goTo(Terminal)},
		},
		Complete: done.handle,
	}
}

func newSingleStep(name string, done *completions) *Definition {
	return &Definition{
		Name:     name,
		Start:    "only",
		Steps:    []*Step{{Name: "only", Prompt: staticPrompt("Say something"), Input: Input{Kind: InputText}, Next: goTo(Terminal)}},
		Complete: done.handle,
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *completions, *MemoryStore) {
	t.Helper()
	done := &completions{}
	reg, err := NewRegistry(newSurvey(done), newSingleStep("note", done))
	require.NoError(t, err)
	store := NewMemoryStore(time.Hour).WithClock(func() time.Time { return testNow })
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return NewEngine(reg, store, opts...), done, store
}

// pausingStore lets a test hold one engine between its read and its write.
type pausingStore struct {
	Store
	entered chan struct{}
	release chan struct{}
}

func newPausingStore(inner Store) *pausingStore {
	return &pausingStore{Store: inner, entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *pausingStore) Put(ctx context.Context, s *Session) error {
	close(p.entered)
	<-p.release
	return p.Store.Put(ctx, s)
}
