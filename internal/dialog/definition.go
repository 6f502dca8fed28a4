// Package dialog runs multi-step conversational rituals. A ritual is a
// Definition: a graph of Steps with input contracts and pure transition
// functions. The Engine drives one Session per account through it.
package dialog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Terminal is returned by a transition function to end the dialog.
const Terminal = ""

// InputKind is the contract a step's answer must satisfy.
type InputKind int

const (
	InputText InputKind = iota
	InputChoice
	InputNumber
)

func (k InputKind) String() string {
	switch k {
	case InputText:
		return "text"
	case InputChoice:
		return "choice"
	case InputNumber:
		return "number"
	default:
		return "unknown"
	}
}

// Choice is one selectable option. ID is what transports send back.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Input describes what a step accepts.
type Input struct {
	Kind InputKind

	// Text
	MaxLen   int
	Validate func(string) error

	// Choice. Multi answers are comma-separated choice ids; AllowEmpty lets
	// a multi-select be submitted with nothing selected ("-").
	Choices    func(v View) []Choice
	Multi      bool
	AllowEmpty bool

	// Number, inclusive.
	Min, Max int
}

// Step is one node of a Definition.
type Step struct {
	Name      string
	Prompt    func(v View) string
	Input     Input
	Skippable bool
	// Next returns the following step name or Terminal. It must only read
	// from v.
	Next func(v View) string
}

// Outcome is what a completion handler reports back for rendering.
type Outcome struct {
	Summary string
}

// Completion is handed to a definition's handler once the dialog reaches
// Terminal. It is a snapshot; the session no longer exists.
type Completion struct {
	SessionID   string
	AccountID   string
	Definition  string
	Answers     []Answer
	Params      map[string]string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Value returns the answer recorded for step, "" when skipped or absent.
func (c Completion) Value(step string) string {
	for _, a := range c.Answers {
		if a.Step == step {
			return a.Value
		}
	}
	return ""
}

// Answered reports whether step was answered with a value.
func (c Completion) Answered(step string) bool {
	for _, a := range c.Answers {
		if a.Step == step {
			return !a.Skipped
		}
	}
	return false
}

func (c Completion) Param(key string) string {
	return c.Params[key]
}

// Definition is an immutable ritual description.
type Definition struct {
	Name  string
	Title string
	Start string
	Steps []*Step

	// Entry optionally overrides Start based on the seeded params.
	Entry func(v View) string
	// Guard rejects Begin when a precondition is not met.
	Guard func(ctx context.Context, accountID string) error
	// Prepare seeds session params at Begin.
	Prepare func(ctx context.Context, accountID string, params map[string]string) (map[string]string, error)
	// Complete runs exactly once per finished session.
	Complete func(ctx context.Context, c Completion) (Outcome, error)
}

// Step looks up a step by name.
func (d *Definition) Step(name string) (*Step, bool) {
	for _, s := range d.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Validate checks the static shape of the definition.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("definition has no name")
	}
	if d.Complete == nil {
		return fmt.Errorf("definition %s: no completion handler", d.Name)
	}
	if _, ok := d.Step(d.Start); !ok {
		return fmt.Errorf("definition %s: start step %q not found", d.Name, d.Start)
	}
	seen := make(map[string]bool, len(d.Steps))
	for _, s := range d.Steps {
		if s.Name == "" {
			return fmt.Errorf("definition %s: step with empty name", d.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("definition %s: duplicate step %q", d.Name, s.Name)
		}
		seen[s.Name] = true
		if s.Prompt == nil || s.Next == nil {
			return fmt.Errorf("definition %s: step %s needs a prompt and a transition", d.Name, s.Name)
		}
		switch s.Input.Kind {
		case InputChoice:
			if s.Input.Choices == nil {
				return fmt.Errorf("definition %s: choice step %s has no choices", d.Name, s.Name)
			}
		case InputNumber:
			if s.Input.Min > s.Input.Max {
				return fmt.Errorf("definition %s: step %s has empty range", d.Name, s.Name)
			}
		}
	}
	return nil
}

// parse validates raw against the input contract and returns the
// normalized answer value.
func (in Input) parse(raw string, v View) (string, error) {
	raw = strings.TrimSpace(raw)
	switch in.Kind {
	case InputText:
		if raw == "" {
			return "", fmt.Errorf("an answer is required")
		}
		if in.MaxLen > 0 && len([]rune(raw)) > in.MaxLen {
			return "", fmt.Errorf("answer is longer than %d characters", in.MaxLen)
		}
		if in.Validate != nil {
			if err := in.Validate(raw); err != nil {
				return "", err
			}
		}
		return raw, nil

	case InputNumber:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", fmt.Errorf("%q is not a whole number", raw)
		}
		if n < in.Min || n > in.Max {
			return "", fmt.Errorf("number must be between %d and %d", in.Min, in.Max)
		}
		return strconv.Itoa(n), nil

	case InputChoice:
		choices := in.Choices(v)
		if !in.Multi {
			id, ok := matchChoice(choices, raw)
			if !ok {
				return "", fmt.Errorf("%q is not one of the options", raw)
			}
			return id, nil
		}
		return parseMulti(choices, raw, in.AllowEmpty)
	}
	return "", fmt.Errorf("unsupported input kind %s", in.Kind)
}

func matchChoice(choices []Choice, raw string) (string, bool) {
	for _, c := range choices {
		if c.ID == raw {
			return c.ID, true
		}
	}
	for _, c := range choices {
		if strings.EqualFold(c.Label, raw) || strings.EqualFold(c.ID, raw) {
			return c.ID, true
		}
	}
	return "", false
}

func parseMulti(choices []Choice, raw string, allowEmpty bool) (string, error) {
	if raw == "" || raw == "-" {
		if !allowEmpty {
			return "", fmt.Errorf("select at least one option")
		}
		return "", nil
	}
	picked := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, ok := matchChoice(choices, part)
		if !ok {
			return "", fmt.Errorf("%q is not one of the options", part)
		}
		picked[id] = true
	}
	if len(picked) == 0 && !allowEmpty {
		return "", fmt.Errorf("select at least one option")
	}
	// Keep declaration order so the stored value is canonical.
	ids := make([]string, 0, len(picked))
	for _, c := range choices {
		if picked[c.ID] {
			ids = append(ids, c.ID)
		}
	}
	return strings.Join(ids, ","), nil
}

// Registry holds the definitions available to an Engine.
type Registry struct {
	defs  map[string]*Definition
	order []string
}

// NewRegistry validates and indexes defs.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("duplicate definition %q", d.Name)
		}
		r.defs[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Names returns definition names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
