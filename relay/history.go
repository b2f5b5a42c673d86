package relay

import (
	"context"
	"time"
)

// RetentionLimit is the per-conversation ceiling. Whenever a partition grows
// beyond it, the oldest excess turns are pruned.
const RetentionLimit = 80

// Turn is one persisted conversation message.
type Turn struct {
	Role    Role      `json:"role"`
	Content Content   `json:"content"`
	At      time.Time `json:"at,omitempty"`
}

// HistoryStore is the external conversation log: an append-only, time-ordered
// sequence of turns per (scope, chatID) key. The store exclusively owns
// persisted turns; callers re-read the tail on every call and never cache.
type HistoryStore interface {
	// ReadRecent returns up to limit of the newest turns, re-ordered oldest
	// first for replay.
	ReadRecent(ctx context.Context, scope, chatID string, limit int) ([]Turn, error)

	// AppendAndPrune inserts all turns, then trims the partition to the
	// RetentionLimit most recent turns. Pruning may happen asynchronously.
	AppendAndPrune(ctx context.Context, scope, chatID string, turns []Turn) error

	// Clear deletes every turn for the key.
	Clear(ctx context.Context, scope, chatID string) error

	// Close releases underlying resources. Idempotent.
	Close() error
}

// sanitizeTurns drops turns with a missing role or empty content. A bad turn
// is dropped whole, never partially stored.
func sanitizeTurns(turns []Turn) []Turn {
	out := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if t.Role == "" || t.Content.Empty() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// turnsToMessages converts stored turns into request context messages.
func turnsToMessages(turns []Turn) []Message {
	msgs := make([]Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}
