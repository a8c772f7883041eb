package agent

import (
	"fmt"

	"github.com/dusk-indust/coauthor/internal/remote"
)

// EventKind identifies what happened in a cycle.
type EventKind int

const (
	EventIntroduced EventKind = iota
	EventWaiting
	EventApplied
	EventRejected
	EventSkipped
	EventFailed
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventIntroduced:
		return "introduced"
	case EventWaiting:
		return "waiting"
	case EventApplied:
		return "applied"
	case EventRejected:
		return "rejected"
	case EventSkipped:
		return "skipped"
	case EventFailed:
		return "failed"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event reports one controller outcome to an observer.
type Event struct {
	AgentID   string
	Kind      EventKind
	Cycle     int
	Operation remote.Operation
	Detail    string
	Err       error
}

// EventReporter queues cycle events from any number of controllers for a
// single consumer, such as the CLI printing -verbose status lines.
type EventReporter struct {
	queue chan Event
}

// NewEventReporter returns a reporter that holds up to 64 undelivered events.
func NewEventReporter() *EventReporter {
	return &EventReporter{
		queue: make(chan Event, 64),
	}
}

// Emit queues ev without blocking the calling controller. Events that find
// the queue full are dropped.
func (r *EventReporter) Emit(ev Event) {
	select {
	case r.queue <- ev:
	default:
	}
}

// Subscribe returns the queue. It is closed by Close once every controller
// feeding the reporter has returned.
func (r *EventReporter) Subscribe() <-chan Event {
	return r.queue
}

// Close ends the subscription. Emit must not be called afterwards.
func (r *EventReporter) Close() {
	close(r.queue)
}

// FormatEvent renders ev as one indented status line with a glyph per kind.
func FormatEvent(ev Event) string {
	switch ev.Kind {
	case EventIntroduced:
		return fmt.Sprintf("  \u25cb %s joined as %s", ev.AgentID, ev.Detail)
	case EventWaiting:
		return fmt.Sprintf("  \u2026 %s waiting for a document", ev.AgentID)
	case EventApplied:
		return fmt.Sprintf("  \u2713 %s cycle %d: %s applied", ev.AgentID, ev.Cycle, ev.Operation)
	case EventRejected:
		return fmt.Sprintf("  \u2717 %s cycle %d: %s rejected", ev.AgentID, ev.Cycle, ev.Operation)
	case EventSkipped:
		return fmt.Sprintf("  - %s cycle %d: %s skipped (%s)", ev.AgentID, ev.Cycle, ev.Operation, ev.Detail)
	case EventFailed:
		return fmt.Sprintf("  ! %s cycle %d failed: %v", ev.AgentID, ev.Cycle, ev.Err)
	case EventStopped:
		return fmt.Sprintf("  \u25a0 %s stopped: %s", ev.AgentID, ev.Detail)
	default:
		return fmt.Sprintf("  ? %s (unknown event)", ev.AgentID)
	}
}
