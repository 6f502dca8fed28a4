package dialog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_HappyPath(t *testing.T) {
	eng, done, store := newTestEngine(t)
	ctx := context.Background()

	r, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	assert.Equal(t, "name", r.Step)
	assert.False(t, r.CanGoBack)
	assert.Equal(t, "text", r.Input)

	r, err = eng.Submit(ctx, "u1", "  Ada ")
	require.NoError(t, err)
	assert.Equal(t, "mood", r.Step)
	assert.Equal(t, "How are you, Ada?", r.Prompt)
	assert.Len(t, r.Choices, 2)
	assert.True(t, r.CanGoBack)

	r, err = eng.Submit(ctx, "u1", "GOOD")
	require.NoError(t, err)
	assert.Equal(t, "score", r.Step, "good mood skips the reason step")
	assert.Equal(t, 1, r.Min)
	assert.Equal(t, 5, r.Max)

	r, err = eng.Submit(ctx, "u1", "4")
	require.NoError(t, err)
	assert.True(t, r.Done)
	assert.Equal(t, "done Ada", r.Summary)

	require.Equal(t, 1, done.count())
	c := done.calls[0]
	assert.Equal(t, "u1", c.AccountID)
	assert.Equal(t, "survey", c.Definition)
	assert.Equal(t, "good", c.Value("mood"))
	assert.Equal(t, "4", c.Value("score"))
	assert.False(t, c.Answered("reason"))
	assert.Equal(t, 0, store.Len())
}

func TestEngine_BranchAndSkip(t *testing.T) {
	eng, done, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "Bo")
	require.NoError(t, err)
	r, err := eng.Submit(ctx, "u1", "bad")
	require.NoError(t, err)
	assert.Equal(t, "reason", r.Step)
	assert.True(t, r.Skippable)

	r, err = eng.Skip(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "score", r.Step)

	_, err = eng.Submit(ctx, "u1", "2")
	require.NoError(t, err)

	require.Equal(t, 1, done.count())
	c := done.calls[0]
	assert.False(t, c.Answered("reason"))
	assert.Len(t, c.Answers, 4, "skipped step is still recorded")
}

func TestEngine_SkipNotSkippable(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)

	_, err = eng.Skip(ctx, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSkippable)
	assert.True(t, IsRecoverable(err))

	r, err := eng.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "name", r.Step)
}

func TestEngine_InvalidInputLeavesStateUnchanged(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "Ada")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "good")
	require.NoError(t, err)

	before, err := eng.Active(ctx, "u1")
	require.NoError(t, err)

	for _, raw := range []string{"", "zero", "9", "0", "3.5"} {
		_, err = eng.Submit(ctx, "u1", raw)
		require.Error(t, err, "input %q", raw)
		assert.True(t, IsInvalidInput(err), "input %q", raw)
	}

	after, err := eng.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_BackRoundTrip(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "Ada")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "bad")
	require.NoError(t, err)

	r, err := eng.Back(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "mood", r.Step)

	s, err := eng.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, s.History)
	require.Len(t, s.Answers, 1)
	assert.Equal(t, "name", s.Answers[0].Step)

	r, err = eng.Submit(ctx, "u1", "good")
	require.NoError(t, err)
	assert.Equal(t, "score", r.Step, "changed answer takes the other branch")

	_, err = eng.Back(ctx, "u1")
	require.NoError(t, err)
	_, err = eng.Back(ctx, "u1")
	require.NoError(t, err)
	_, err = eng.Back(ctx, "u1")
	assert.ErrorIs(t, err, ErrAtStart)
}

func TestEngine_ExactlyOnceCompletion(t *testing.T) {
	eng, done, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "note")
	require.NoError(t, err)

	r, err := eng.Submit(ctx, "u1", "hello")
	require.NoError(t, err)
	assert.True(t, r.Done)

	_, err = eng.Submit(ctx, "u1", "hello")
	require.Error(t, err)
	assert.True(t, IsNoActiveSession(err))
	assert.Equal(t, 1, done.count())
}

func TestEngine_ConcurrentTerminalSubmits(t *testing.T) {
	eng, done, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "note")
	require.NoError(t, err)

	var ok, missing atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Submit(ctx, "u1", "hi")
			switch {
			case err == nil:
				ok.Add(1)
			case IsNoActiveSession(err):
				missing.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), missing.Load())
	assert.Equal(t, 1, done.count())
	assert.Equal(t, 0, eng.locks.size())
}

func TestEngine_HandlerFailureRestoresSession(t *testing.T) {
	eng, done, store := newTestEngine(t)
	ctx := context.Background()
	done.fail = errors.New("ledger down")

	_, err := eng.Begin(ctx, "u1", "note")
	require.NoError(t, err)

	_, err = eng.Submit(ctx, "u1", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger down")
	assert.Equal(t, 1, store.Len())

	r, err := eng.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "only", r.Step)

	done.fail = nil
	r, err = eng.Submit(ctx, "u1", "hi")
	require.NoError(t, err)
	assert.True(t, r.Done)
	assert.Equal(t, 1, done.count())
}

func TestEngine_SingleActiveSession(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "Ada")
	require.NoError(t, err)

	r, err := eng.Begin(ctx, "u1", "note")
	require.NoError(t, err)
	assert.True(t, r.Resumed)
	assert.Equal(t, "survey", r.Definition)
	assert.Equal(t, "mood", r.Step)

	r, err = eng.Begin(ctx, "u1", "note", WithRestart())
	require.NoError(t, err)
	assert.False(t, r.Resumed)
	assert.Equal(t, "note", r.Definition)

	// Other accounts are independent.
	r, err = eng.Begin(ctx, "u2", "survey")
	require.NoError(t, err)
	assert.Equal(t, "name", r.Step)
}

func TestEngine_DiscardExistingPolicy(t *testing.T) {
	eng, _, _ := newTestEngine(t, WithConflictPolicy(DiscardExisting))
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	r, err := eng.Begin(ctx, "u1", "note")
	require.NoError(t, err)
	assert.Equal(t, "note", r.Definition)
	assert.False(t, r.Resumed)
}

func TestEngine_Cancel(t *testing.T) {
	eng, done, store := newTestEngine(t)
	ctx := context.Background()

	_, err := eng.Cancel(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	_, err = eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	name, err := eng.Cancel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "survey", name)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, done.count())

	_, err = eng.Submit(ctx, "u1", "x")
	assert.True(t, IsNoActiveSession(err))
}

func TestEngine_UnknownDefinition(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	_, err := eng.Begin(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, ErrUnknownDefinition)
}

func TestEngine_GuardPrepareEntry(t *testing.T) {
	done := &completions{}
	blocked := true
	def := &Definition{
		Name:  "gated",
		Start: "first",
		Steps: []*Step{
			{Name: "first", Prompt: staticPrompt("first"), Input: Input{Kind: InputText}, Next: goTo("second")},
			{Name: "second", Prompt: func(v View) string { return "item " + v.Param("item") }, Input: Input{Kind: InputText}, Next: goTo(Terminal)},
		},
		Guard: func(context.Context, string) error {
			if blocked {
				return Precondition("not yet")
			}
			return nil
		},
		Prepare: func(_ context.Context, _ string, p map[string]string) (map[string]string, error) {
			p["item"] = "42"
			return p, nil
		},
		Entry: func(v View) string {
			if v.Param("jump") == "yes" {
				return "second"
			}
			return ""
		},
		Complete: done.handle,
	}
	reg, err := NewRegistry(def)
	require.NoError(t, err)
	eng := NewEngine(reg, NewMemoryStore(0))
	ctx := context.Background()

	_, err = eng.Begin(ctx, "u1", "gated")
	assert.ErrorIs(t, err, ErrPrecondition)
	s, err := eng.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, s)

	blocked = false
	r, err := eng.Begin(ctx, "u1", "gated", WithParams(map[string]string{"jump": "yes"}))
	require.NoError(t, err)
	assert.Equal(t, "second", r.Step)
	assert.Equal(t, "item 42", r.Prompt)
	assert.False(t, r.CanGoBack)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) ObserveDialog(_ context.Context, e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func TestEngine_ObserverEvents(t *testing.T) {
	obs := &recordingObserver{}
	eng, _, _ := newTestEngine(t, WithObserver(obs))
	ctx := context.Background()

	_, err := eng.Begin(ctx, "u1", "note")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "")
	require.Error(t, err)
	_, err = eng.Submit(ctx, "u1", "ok")
	require.NoError(t, err)

	var kinds []EventKind
	for _, e := range obs.events {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{EventBegin, EventSubmit, EventComplete, EventSubmit}, kinds)
	assert.Error(t, obs.events[1].Err)
	assert.NoError(t, obs.events[3].Err)
}

func TestEngine_FailedRestartKeepsLiveSession(t *testing.T) {
	done := &completions{}
	gated := newSingleStep("gated", done)
	gated.Guard = func(context.Context, string) error { return Precondition("not yet") }
	failing := newSingleStep("failing", done)
	failing.Prepare = func(context.Context, string, map[string]string) (map[string]string, error) {
		return nil, errors.New("calendar lookup failed")
	}
	reg, err := NewRegistry(newSurvey(done), gated, failing)
	require.NoError(t, err)
	eng := NewEngine(reg, NewMemoryStore(0))
	ctx := context.Background()

	_, err = eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = eng.Submit(ctx, "u1", "Ada")
	require.NoError(t, err)

	_, err = eng.Begin(ctx, "u1", "gated", WithRestart())
	assert.ErrorIs(t, err, ErrPrecondition)
	_, err = eng.Begin(ctx, "u1", "failing", WithRestart())
	require.Error(t, err)

	s, err := eng.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, s, "a refused restart leaves the live session alone")
	assert.Equal(t, "survey", s.Definition)
	assert.Equal(t, "mood", s.Current)
	assert.Equal(t, []string{"name"}, s.History)
}

func TestEngine_SharedStoreRejectsStaleWrite(t *testing.T) {
	done := &completions{}
	reg, err := NewRegistry(newSurvey(done))
	require.NoError(t, err)
	shared := NewMemoryStore(0)
	paused := newPausingStore(shared)
	first := NewEngine(reg, shared)
	second := NewEngine(reg, paused)
	ctx := context.Background()

	_, err = first.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = first.Submit(ctx, "u1", "Ada")
	require.NoError(t, err)
	_, err = first.Submit(ctx, "u1", "good")
	require.NoError(t, err)

	// The second process reads the session for Back and stalls before
	// writing it back.
	backErr := make(chan error, 1)
	go func() {
		_, err := second.Back(ctx, "u1")
		backErr <- err
	}()
	<-paused.entered

	r, err := first.Submit(ctx, "u1", "3")
	require.NoError(t, err)
	assert.True(t, r.Done)

	close(paused.release)
	err = <-backErr
	assert.True(t, IsStale(err), "late write must not bring the session back: %v", err)

	_, err = first.Submit(ctx, "u1", "3")
	assert.True(t, IsNoActiveSession(err))
	assert.Equal(t, 1, done.count())
	assert.Equal(t, 0, shared.Len())
}

func TestEngine_SharedStoreLosingTakeDoesNotComplete(t *testing.T) {
	done := &completions{}
	reg, err := NewRegistry(newSurvey(done))
	require.NoError(t, err)
	shared := NewMemoryStore(0)
	first := NewEngine(reg, shared)
	second := NewEngine(reg, shared)
	ctx := context.Background()

	_, err = first.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = first.Submit(ctx, "u1", "Ada")
	require.NoError(t, err)
	_, err = first.Submit(ctx, "u1", "good")
	require.NoError(t, err)

	// A copy read before the other process moved the session back cannot
	// be completed.
	snapshot, err := shared.Get(ctx, "u1")
	require.NoError(t, err)
	_, err = second.Back(ctx, "u1")
	require.NoError(t, err)

	taken, err := shared.Take(ctx, "u1", snapshot.ID, snapshot.Version)
	require.NoError(t, err)
	assert.False(t, taken)
	assert.Equal(t, 0, done.count())
}

func TestEngine_PinnedOperationsRejectOldButtons(t *testing.T) {
	eng, done, _ := newTestEngine(t)
	ctx := context.Background()

	r, err := eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	nameStep := Expect{Session: r.Session[:8], Step: r.Step}

	r, err = eng.SubmitAt(ctx, "u1", nameStep, "Bo")
	require.NoError(t, err)
	require.Equal(t, "mood", r.Step)
	moodStep := Expect{Session: r.Session[:8], Step: r.Step}

	// A second tap on the same button arrives after the step moved on.
	_, err = eng.SubmitAt(ctx, "u1", nameStep, "Bo")
	assert.True(t, IsStale(err))
	assert.True(t, IsRecoverable(err))
	_, err = eng.SkipAt(ctx, "u1", nameStep)
	assert.True(t, IsStale(err))
	_, err = eng.BackAt(ctx, "u1", nameStep)
	assert.True(t, IsStale(err))

	cur, err := eng.Current(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "mood", cur.Step, "stale taps change nothing")

	r, err = eng.SubmitAt(ctx, "u1", moodStep, "bad")
	require.NoError(t, err)
	assert.Equal(t, "reason", r.Step)

	// Buttons from an earlier session of the same ritual are refused too.
	_, err = eng.Cancel(ctx, "u1")
	require.NoError(t, err)
	_, err = eng.Begin(ctx, "u1", "survey")
	require.NoError(t, err)
	_, err = eng.SubmitAt(ctx, "u1", nameStep, "Bo")
	assert.True(t, IsStale(err))
	_, err = eng.CancelAt(ctx, "u1", nameStep)
	assert.True(t, IsStale(err))

	active, err := eng.Active(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, active)
	_, err = eng.CancelAt(ctx, "u1", Expect{Session: active.ID[:8]})
	require.NoError(t, err)
	assert.Equal(t, 0, done.count())
}
