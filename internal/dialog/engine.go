package dialog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ConflictPolicy decides what Begin does when the account already has a
// live session.
type ConflictPolicy int

const (
	// ResumeExisting returns the live session untouched.
	ResumeExisting ConflictPolicy = iota
	// DiscardExisting drops the live session and starts fresh.
	DiscardExisting
)

// Engine drives sessions through definitions. All operations on one account
// are serialized; different accounts never contend.
type Engine struct {
	defs     *Registry
	store    Store
	locks    *keyedMutex
	policy   ConflictPolicy
	now      func() time.Time
	logger   *slog.Logger
	observer Observer
}

// Option configures an Engine.
type Option func(*Engine)

func WithConflictPolicy(p ConflictPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

func NewEngine(defs *Registry, store Store, opts ...Option) *Engine {
	e := &Engine{
		defs:     defs,
		store:    store,
		locks:    newKeyedMutex(),
		policy:   ResumeExisting,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Definitions exposes the registry, e.g. for help output.
func (e *Engine) Definitions() *Registry {
	return e.defs
}

// BeginOption tunes a single Begin call.
type BeginOption func(*beginConfig)

type beginConfig struct {
	params  map[string]string
	restart bool
}

// WithParams seeds session params.
func WithParams(p map[string]string) BeginOption {
	return func(c *beginConfig) {
		for k, v := range p {
			c.params[k] = v
		}
	}
}

// WithRestart discards any live session regardless of the engine policy.
func WithRestart() BeginOption {
	return func(c *beginConfig) { c.restart = true }
}

func (e *Engine) observe(ctx context.Context, kind EventKind, accountID, def, step string, started time.Time, err error) {
	e.observer.ObserveDialog(ctx, Event{
		Kind:       kind,
		AccountID:  accountID,
		Definition: def,
		Step:       step,
		Duration:   e.now().Sub(started),
		Err:        err,
	})
}

// Begin starts definition for accountID. With a live session present the
// conflict policy applies: the live one is resumed (Reply.Resumed is set,
// and it may belong to another definition) or discarded.
func (e *Engine) Begin(ctx context.Context, accountID, definition string, opts ...BeginOption) (*Reply, error) {
	started := e.now()
	cfg := beginConfig{params: map[string]string{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	def, ok := e.defs.Get(definition)
	if !ok {
		return nil, &Error{Code: CodeUnknownDefinition, Definition: definition, Message: "unknown ritual " + definition}
	}

	unlock := e.locks.Lock(accountID)
	defer unlock()

	existing, err := e.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if existing != nil && e.policy == ResumeExisting && !cfg.restart {
		if liveDef, ok := e.defs.Get(existing.Definition); ok {
			reply := render(liveDef, existing)
			reply.Resumed = true
			e.observe(ctx, EventResume, accountID, existing.Definition, existing.Current, started, nil)
			return reply, nil
		}
		// Unknown definitions can only come from an older deploy; replace them.
	}

	if def.Guard != nil {
		if err := def.Guard(ctx, accountID); err != nil {
			e.observe(ctx, EventBegin, accountID, def.Name, "", started, err)
			return nil, err
		}
	}

	params := cfg.params
	if def.Prepare != nil {
		params, err = def.Prepare(ctx, accountID, params)
		if err != nil {
			e.observe(ctx, EventBegin, accountID, def.Name, "", started, err)
			return nil, err
		}
		if params == nil {
			params = map[string]string{}
		}
	}

	now := e.now()
	s := &Session{
		ID:         uuid.New().String(),
		AccountID:  accountID,
		Definition: def.Name,
		Params:     params,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	s.Current = def.Start
	if def.Entry != nil {
		if entry := def.Entry(View{s: s}); entry != "" {
			s.Current = entry
		}
	}
	if _, ok := def.Step(s.Current); !ok {
		return nil, fmt.Errorf("definition %s: entry step %q not found", def.Name, s.Current)
	}

	// The new session overwrites the old one in the same compare-and-set,
	// so the old one survives every failure above.
	if existing != nil {
		s.Version = existing.Version
	}
	if err := e.store.Put(ctx, s); err != nil {
		return nil, err
	}
	if existing != nil {
		e.logger.InfoContext(ctx, "dialog_session_discarded",
			"account", accountID, "definition", existing.Definition, "step", existing.Current)
	}
	e.observe(ctx, EventBegin, accountID, def.Name, s.Current, started, nil)
	return render(def, s), nil
}

// Expect pins an operation to the question the user was looking at. A
// button from an older message carries an Expect that no longer matches and
// is refused with ErrStale. Empty fields match anything.
type Expect struct {
	// Session is the session id or a prefix of it.
	Session string
	Step    string
}

func (x Expect) check(def *Definition, s *Session) error {
	if (x.Session != "" && !strings.HasPrefix(s.ID, x.Session)) || (x.Step != "" && x.Step != s.Current) {
		return &Error{Code: CodeStale, Definition: def.Name, Step: s.Current, Message: ErrStale.Message}
	}
	return nil
}

// Submit answers the current step.
func (e *Engine) Submit(ctx context.Context, accountID, value string) (*Reply, error) {
	return e.advance(ctx, EventSubmit, accountID, Expect{}, value)
}

// SubmitAt answers the current step only if it is the one at points to.
func (e *Engine) SubmitAt(ctx context.Context, accountID string, at Expect, value string) (*Reply, error) {
	return e.advance(ctx, EventSubmit, accountID, at, value)
}

// Skip passes over the current step if it is skippable.
func (e *Engine) Skip(ctx context.Context, accountID string) (*Reply, error) {
	return e.advance(ctx, EventSkip, accountID, Expect{}, "")
}

// SkipAt is Skip pinned to a step.
func (e *Engine) SkipAt(ctx context.Context, accountID string, at Expect) (*Reply, error) {
	return e.advance(ctx, EventSkip, accountID, at, "")
}

func (e *Engine) advance(ctx context.Context, kind EventKind, accountID string, at Expect, value string) (reply *Reply, err error) {
	started := e.now()
	unlock := e.locks.Lock(accountID)
	defer unlock()

	s, def, err := e.load(ctx, accountID)
	if err != nil {
		e.observe(ctx, kind, accountID, "", "", started, err)
		return nil, err
	}
	step, _ := def.Step(s.Current)
	defer func() {
		e.observe(ctx, kind, accountID, def.Name, step.Name, started, err)
	}()
	if err := at.check(def, s); err != nil {
		return nil, err
	}

	prev := s.Clone()
	v := View{s: s}

	var ans Answer
	if kind == EventSkip {
		if !step.Skippable {
			return nil, &Error{Code: CodeNotSkippable, Definition: def.Name, Step: step.Name, Message: "this step cannot be skipped"}
		}
		ans = Answer{Step: step.Name, Skipped: true}
	} else {
		normalized, perr := step.Input.parse(value, v)
		if perr != nil {
			return nil, &Error{Code: CodeInvalidInput, Definition: def.Name, Step: step.Name, Message: perr.Error(), Err: perr}
		}
		ans = Answer{Step: step.Name, Value: normalized}
	}

	s.record(ans)
	s.History = append(s.History, step.Name)
	s.UpdatedAt = e.now()

	next := step.Next(View{s: s})
	if next != Terminal {
		if _, ok := def.Step(next); !ok {
			return nil, fmt.Errorf("definition %s: step %s moved to unknown step %q", def.Name, step.Name, next)
		}
		s.Current = next
		if err := e.store.Put(ctx, s); err != nil {
			return nil, err
		}
		return render(def, s), nil
	}

	return e.complete(ctx, def, s, prev)
}

// complete consumes the session and runs the handler. The session is taken
// out of the store first so a duplicate terminal event finds nothing. If the
// handler fails the pre-submit session is restored for a retry.
func (e *Engine) complete(ctx context.Context, def *Definition, s, prev *Session) (*Reply, error) {
	taken, err := e.store.Take(ctx, s.AccountID, s.ID, s.Version)
	if err != nil {
		return nil, err
	}
	if !taken {
		return nil, &Error{Code: CodeNoActiveSession, Definition: def.Name, Message: "session already completed"}
	}

	completion := Completion{
		SessionID:   s.ID,
		AccountID:   s.AccountID,
		Definition:  def.Name,
		Answers:     append([]Answer(nil), s.Answers...),
		Params:      s.Params,
		StartedAt:   s.StartedAt,
		CompletedAt: e.now(),
	}

	started := e.now()
	outcome, err := def.Complete(ctx, completion)
	if err != nil {
		e.logger.ErrorContext(ctx, "dialog_completion_failed",
			"account", s.AccountID, "definition", def.Name, "error", err.Error())
		// The taken session is gone, so the restore is a fresh insert. It
		// loses to anything begun in the meantime.
		prev.Version = 0
		if perr := e.store.Put(ctx, prev); perr != nil {
			e.logger.ErrorContext(ctx, "dialog_session_restore_failed",
				"account", s.AccountID, "definition", def.Name, "error", perr.Error())
		}
		e.observe(ctx, EventComplete, s.AccountID, def.Name, "", started, err)
		return nil, fmt.Errorf("completing %s: %w", def.Name, err)
	}

	e.logger.InfoContext(ctx, "dialog_completed",
		"account", s.AccountID, "definition", def.Name,
		"answers", len(completion.Answers), "duration_ms", completion.CompletedAt.Sub(s.StartedAt).Milliseconds())
	e.observe(ctx, EventComplete, s.AccountID, def.Name, "", started, nil)

	return &Reply{
		Definition: def.Name,
		Title:      def.Title,
		Done:       true,
		Summary:    outcome.Summary,
	}, nil
}

// Back returns to the previous step and discards its answer.
func (e *Engine) Back(ctx context.Context, accountID string) (*Reply, error) {
	return e.BackAt(ctx, accountID, Expect{})
}

// BackAt is Back pinned to a step.
func (e *Engine) BackAt(ctx context.Context, accountID string, at Expect) (reply *Reply, err error) {
	started := e.now()
	unlock := e.locks.Lock(accountID)
	defer unlock()

	s, def, err := e.load(ctx, accountID)
	if err != nil {
		e.observe(ctx, EventBack, accountID, "", "", started, err)
		return nil, err
	}
	defer func() {
		e.observe(ctx, EventBack, accountID, def.Name, s.Current, started, err)
	}()
	if err := at.check(def, s); err != nil {
		return nil, err
	}

	if len(s.History) == 0 {
		return nil, &Error{Code: CodeAtStart, Definition: def.Name, Step: s.Current, Message: "already at the first step"}
	}
	last := s.History[len(s.History)-1]
	s.History = s.History[:len(s.History)-1]
	s.forget(last)
	s.Current = last
	s.UpdatedAt = e.now()

	if err := e.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return render(def, s), nil
}

// Cancel abandons the live session without running its handler and
// returns the cancelled definition name.
func (e *Engine) Cancel(ctx context.Context, accountID string) (string, error) {
	return e.CancelAt(ctx, accountID, Expect{})
}

// CancelAt cancels only the session at names. Its Step is ignored.
func (e *Engine) CancelAt(ctx context.Context, accountID string, at Expect) (string, error) {
	started := e.now()
	unlock := e.locks.Lock(accountID)
	defer unlock()

	s, err := e.store.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	if s == nil {
		e.observe(ctx, EventCancel, accountID, "", "", started, ErrNoActiveSession)
		return "", ErrNoActiveSession
	}
	if at.Session != "" && !strings.HasPrefix(s.ID, at.Session) {
		err := &Error{Code: CodeStale, Definition: s.Definition, Message: "that ritual is already over"}
		e.observe(ctx, EventCancel, accountID, s.Definition, s.Current, started, err)
		return "", err
	}
	if err := e.store.Delete(ctx, accountID); err != nil {
		return "", err
	}
	e.observe(ctx, EventCancel, accountID, s.Definition, s.Current, started, nil)
	return s.Definition, nil
}

// Current re-renders the live session's step.
func (e *Engine) Current(ctx context.Context, accountID string) (*Reply, error) {
	unlock := e.locks.Lock(accountID)
	defer unlock()

	s, def, err := e.load(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return render(def, s), nil
}

// Active returns a copy of the account's live session, or nil.
func (e *Engine) Active(ctx context.Context, accountID string) (*Session, error) {
	unlock := e.locks.Lock(accountID)
	defer unlock()
	return e.store.Get(ctx, accountID)
}

func (e *Engine) load(ctx context.Context, accountID string) (*Session, *Definition, error) {
	s, err := e.store.Get(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	if s == nil {
		return nil, nil, ErrNoActiveSession
	}
	def, ok := e.defs.Get(s.Definition)
	if !ok {
		return nil, nil, &Error{Code: CodeUnknownDefinition, Definition: s.Definition, Message: "unknown ritual " + s.Definition}
	}
	if _, ok := def.Step(s.Current); !ok {
		return nil, nil, fmt.Errorf("definition %s: session at unknown step %q", def.Name, s.Current)
	}
	return s, def, nil
}
