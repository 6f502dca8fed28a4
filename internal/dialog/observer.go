package dialog

import (
	"context"
	"time"
)

// EventKind names an engine operation.
type EventKind string

const (
	EventBegin    EventKind = "begin"
	EventResume   EventKind = "resume"
	EventSubmit   EventKind = "submit"
	EventSkip     EventKind = "skip"
	EventBack     EventKind = "back"
	EventCancel   EventKind = "cancel"
	EventComplete EventKind = "complete"
)

// Event describes one engine operation for logging and metrics.
type Event struct {
	Kind       EventKind
	AccountID  string
	Definition string
	Step       string
	Duration   time.Duration
	Err        error
}

// Observer receives engine events.
type Observer interface {
	ObserveDialog(ctx context.Context, e Event)
}

type noopObserver struct{}

func (noopObserver) ObserveDialog(context.Context, Event) {}
