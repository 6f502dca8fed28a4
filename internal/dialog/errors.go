package dialog

import (
	"errors"
	"fmt"
)

// Code classifies engine errors.
type Code string

const (
	CodeInvalidInput      Code = "invalid_input"
	CodeNoActiveSession   Code = "no_active_session"
	CodeNotSkippable      Code = "not_skippable"
	CodeAtStart           Code = "at_start"
	CodeUnknownDefinition Code = "unknown_definition"
	CodeSessionActive     Code = "session_active"
	CodePrecondition      Code = "precondition"
	CodeStale             Code = "stale"
)

// Error is the engine's typed error. Two Errors match under errors.Is when
// their codes are equal, so callers can compare against the sentinels below.
type Error struct {
	Code       Code
	Definition string
	Step       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	switch {
	case e.Definition != "" && e.Step != "":
		return fmt.Sprintf("dialog %s/%s: %s", e.Definition, e.Step, msg)
	case e.Definition != "":
		return fmt.Sprintf("dialog %s: %s", e.Definition, msg)
	default:
		return "dialog: " + msg
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidInput      = &Error{Code: CodeInvalidInput}
	ErrNoActiveSession   = &Error{Code: CodeNoActiveSession, Message: "no active session"}
	ErrNotSkippable      = &Error{Code: CodeNotSkippable, Message: "this step cannot be skipped"}
	ErrAtStart           = &Error{Code: CodeAtStart, Message: "already at the first step"}
	ErrUnknownDefinition = &Error{Code: CodeUnknownDefinition, Message: "unknown ritual"}
	ErrSessionActive     = &Error{Code: CodeSessionActive, Message: "another ritual is in progress"}
	ErrPrecondition      = &Error{Code: CodePrecondition}
	ErrStale             = &Error{Code: CodeStale, Message: "that question was already answered"}
)

// Precondition builds the error a Guard returns to refuse Begin.
func Precondition(msg string) error {
	return &Error{Code: CodePrecondition, Message: msg}
}

func codeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// IsInvalidInput reports whether err is a recoverable validation failure.
func IsInvalidInput(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeInvalidInput
}

// IsNoActiveSession reports whether err means the account has no session.
func IsNoActiveSession(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeNoActiveSession
}

// IsStale reports whether err refused an out-of-date answer or write.
func IsStale(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeStale
}

// IsRecoverable reports whether the caller should simply re-prompt.
func IsRecoverable(err error) bool {
	c, ok := codeOf(err)
	if !ok {
		return false
	}
	switch c {
	case CodeInvalidInput, CodeNotSkippable, CodeAtStart, CodeStale:
		return true
	}
	return false
}
