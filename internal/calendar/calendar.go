// Package calendar creates calendar events for planned tasks.
package calendar

import (
	"context"
	"fmt"
	"time"
)

// Event is a timed calendar entry.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	Duration    time.Duration
}

// Client creates events and returns the provider's event id.
type Client interface {
	CreateEvent(ctx context.Context, e Event) (string, error)
}

// Noop is used when no calendar is configured.
type Noop struct{}

func (Noop) CreateEvent(context.Context, Event) (string, error) { return "", nil }

const (
	maxSummary   = 100
	taskDuration = time.Hour
)

// TaskEvent is a planned event for task slot 1..3.
type TaskEvent struct {
	Slot  int
	Event Event
}

// PlanTaskEvents lays out the day's tasks: the priority task at 08:00 and
// the others from 09:00 in slot order, one hour each. Empty slots and slots
// that already have an event id are left out. day supplies the date and
// location.
func PlanTaskEvents(day time.Time, tasks [3]string, priority int, existing [3]string) []TaskEvent {
	y, m, d := day.Date()
	at := func(hour int) time.Time {
		return time.Date(y, m, d, hour, 0, 0, 0, day.Location())
	}

	var out []TaskEvent
	for i, text := range tasks {
		slot := i + 1
		if text == "" || existing[i] != "" {
			continue
		}
		start := at(9 + i)
		if slot == priority {
			start = at(8)
		}
		out = append(out, TaskEvent{
			Slot: slot,
			Event: Event{
				Summary:     truncate(text, maxSummary),
				Description: fmt.Sprintf("Task #%d for %s", slot, day.Format("02.01.2006")),
				Start:       start,
				Duration:    taskDuration,
			},
		})
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
