package relay

import (
	"context"
	"strings"
	"time"
)

// Asker is any component that can answer a logical ask: a single provider
// binding or the whole multi-provider client.
type Asker interface {
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// MemoryConfig configures a MemoryBridge.
type MemoryConfig struct {
	// Store holds the conversation log.
	Store HistoryStore
	// Scope namespaces conversations (default "default").
	Scope string
	// Limit caps how many recent turns are replayed per call (default 10).
	Limit int
	// Events receives persistence failures. Defaults to a stderr logger.
	Events EventHandler
	// Tasks runs the fire-and-forget persistence. Tests inject a group and
	// Wait on it to observe writes.
	Tasks *TaskGroup
}

// MemoryBridge decorates any Asker with conversation memory: prior turns are
// loaded as context before the call and the new exchange is persisted after
// it. Persistence never blocks or fails the caller's answer.
type MemoryBridge struct {
	asker  Asker
	store  HistoryStore
	scope  string
	limit  int
	events EventHandler
	tasks  *TaskGroup
}

// NewMemoryBridge wraps asker with the given memory configuration.
func NewMemoryBridge(asker Asker, cfg MemoryConfig) *MemoryBridge {
	scope := cfg.Scope
	if scope == "" {
		scope = DefaultScope
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	events := cfg.Events
	if events == nil {
		events = defaultEvents()
	}
	tasks := cfg.Tasks
	if tasks == nil {
		tasks = NewTaskGroup()
	}
	return &MemoryBridge{
		asker:  asker,
		store:  cfg.Store,
		scope:  scope,
		limit:  limit,
		events: events,
		tasks:  tasks,
	}
}

// Ask replays the stored tail for chatID ahead of the request, delegates, and
// persists the new user/assistant turns in the background. The answer is
// returned as soon as it is available; a failed write is reported as an event
// and never retried.
func (m *MemoryBridge) Ask(ctx context.Context, chatID string, req AskRequest) (AskResponse, error) {
	if strings.TrimSpace(chatID) == "" {
		return AskResponse{}, ErrMissingChatID
	}

	prior, err := m.store.ReadRecent(ctx, m.scope, chatID, m.limit)
	if err != nil {
		return AskResponse{}, err
	}

	// The stored shape of the new input is fixed here, before any
	// provider-specific request shaping happens.
	userTurn := Turn{Role: RoleUser, Content: userContent(req.Input, req.Attachments)}

	dreq := req
	dreq.PriorMessages = append(turnsToMessages(prior), req.PriorMessages...)

	resp, err := m.asker.Ask(ctx, dreq)
	if err != nil {
		return AskResponse{}, err
	}

	now := time.Now()
	userTurn.At = now
	assistantTurn := Turn{Role: RoleAssistant, Content: TextContent(resp.Text), At: now}
	m.tasks.Go(func() {
		// Uses a fresh context: the caller's may already be done.
		err := m.store.AppendAndPrune(context.Background(), m.scope, chatID, []Turn{userTurn, assistantTurn})
		if err != nil {
			m.events(Event{Kind: EventPersistFailed, ChatID: chatID, Err: err})
		}
	})
	return resp, nil
}

// Clear deletes every stored turn for chatID in the bridge's scope.
func (m *MemoryBridge) Clear(ctx context.Context, chatID string) error {
	if strings.TrimSpace(chatID) == "" {
		return ErrMissingChatID
	}
	return m.store.Clear(ctx, m.scope, chatID)
}
