package dialog

import (
	"strings"
	"time"
)

// Answer is one recorded step answer. Skipped answers carry no value.
type Answer struct {
	Step    string `json:"step"`
	Value   string `json:"value,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Session is the live state of one account's dialog. Answers is ordered by
// the time each step was answered and always holds exactly the steps in
// History. Version counts writes; stores use it to refuse stale ones.
type Session struct {
	ID         string            `json:"id"`
	Version    int64             `json:"version"`
	AccountID  string            `json:"account_id"`
	Definition string            `json:"definition"`
	Current    string            `json:"current"`
	Answers    []Answer          `json:"answers"`
	History    []string          `json:"history"`
	Params     map[string]string `json:"params,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

func (s *Session) answer(step string) (Answer, bool) {
	for _, a := range s.Answers {
		if a.Step == step {
			return a, true
		}
	}
	return Answer{}, false
}

// record sets the answer for a.Step, replacing any earlier one.
func (s *Session) record(a Answer) {
	for i := range s.Answers {
		if s.Answers[i].Step == a.Step {
			s.Answers[i] = a
			return
		}
	}
	s.Answers = append(s.Answers, a)
}

func (s *Session) forget(step string) {
	out := s.Answers[:0]
	for _, a := range s.Answers {
		if a.Step != step {
			out = append(out, a)
		}
	}
	s.Answers = out
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Answers = append([]Answer(nil), s.Answers...)
	c.History = append([]string(nil), s.History...)
	if s.Params != nil {
		c.Params = make(map[string]string, len(s.Params))
		for k, v := range s.Params {
			c.Params[k] = v
		}
	}
	return &c
}

// View is the read-only face of a session given to prompts, choice lists
// and transition functions.
type View struct {
	s *Session
}

// Value returns the recorded answer for step, "" when skipped or absent.
func (v View) Value(step string) string {
	a, _ := v.s.answer(step)
	return a.Value
}

// Answered reports whether step holds a non-skipped answer.
func (v View) Answered(step string) bool {
	a, ok := v.s.answer(step)
	return ok && !a.Skipped
}

// Skipped reports whether step was explicitly skipped.
func (v View) Skipped(step string) bool {
	a, ok := v.s.answer(step)
	return ok && a.Skipped
}

// Values splits a multi-select answer into choice ids.
func (v View) Values(step string) []string {
	raw := v.Value(step)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func (v View) Param(key string) string {
	return v.s.Params[key]
}
