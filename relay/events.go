package relay

import (
	"os"

	"github.com/charmbracelet/log"
)

// EventKind names a diagnostic event emitted by the library.
type EventKind string

const (
	// EventAttemptFailed is emitted once per failed attempt, never on success.
	EventAttemptFailed EventKind = "attempt_failed"
	// EventPersistFailed is emitted when a history write fails after a
	// successful answer. The answer itself is unaffected.
	EventPersistFailed EventKind = "persist_failed"
	// EventPruneFailed is emitted when background history pruning fails.
	EventPruneFailed EventKind = "prune_failed"
)

// Event is one diagnostic occurrence. CallID correlates every event produced
// by a single logical ask.
type Event struct {
	Kind     EventKind
	CallID   string
	Provider ProviderID
	Model    string
	Cause    Cause
	ChatID   string
	Err      error
}

// EventHandler receives diagnostic events. Handlers must be safe for
// concurrent use; racing attempts report failures from separate goroutines.
type EventHandler func(Event)

// LogEvents returns an EventHandler that writes events to the given logger.
func LogEvents(logger *log.Logger) EventHandler {
	return func(ev Event) {
		kv := []any{"call", ev.CallID}
		if ev.Provider != "" {
			kv = append(kv, "provider", ev.Provider)
		}
		if ev.Model != "" {
			kv = append(kv, "model", ev.Model)
		}
		if ev.Cause != "" {
			kv = append(kv, "cause", ev.Cause)
		}
		if ev.ChatID != "" {
			kv = append(kv, "chat", ev.ChatID)
		}
		if ev.Err != nil {
			kv = append(kv, "error", ev.Err)
		}
		logger.Warn(string(ev.Kind), kv...)
	}
}

func defaultEvents() EventHandler {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "relay",
	})
	return LogEvents(logger)
}
