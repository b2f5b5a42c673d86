// Package relay is a multi-provider chat-completion client with per-provider
// model fallback, cross-provider routing, first-to-finish racing, and
// optional persistent conversation memory.
package relay

import (
	"context"
	"os"
	"sync"
)

// Client is the unified entry point. A config with a single provider section
// behaves as a plain single-provider client; with several sections the same
// resolution algorithm is applied across providers as well.
type Client struct {
	cfg    Config
	events EventHandler
	tasks  *TaskGroup

	mu         sync.Mutex
	rt         *router       // lazily built
	bridge     *MemoryBridge // lazily built
	ownedStore *SQLiteHistory
}

// New creates a Client with the given config. If DetectEnv is true, missing
// API keys are pulled from environment variables for the sections that exist.
func New(cfg Config) *Client {
	cfg.OpenAI = cloneSection(cfg.OpenAI)
	cfg.Groq = cloneSection(cfg.Groq)
	cfg.Google = cloneSection(cfg.Google)
	if cfg.DetectEnv {
		if cfg.OpenAI != nil && cfg.OpenAI.APIKey == "" {
			cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Groq != nil && cfg.Groq.APIKey == "" {
			cfg.Groq.APIKey = os.Getenv("GROQ_API_KEY")
		}
		if cfg.Google != nil && cfg.Google.APIKey == "" {
			cfg.Google.APIKey = os.Getenv("GOOGLE_API_KEY")
		}
	}
	events := cfg.Events
	if events == nil {
		events = defaultEvents()
	}
	return &Client{cfg: cfg, events: events, tasks: NewTaskGroup()}
}

func cloneSection(pc *ProviderConfig) *ProviderConfig {
	if pc == nil {
		return nil
	}
	cp := *pc
	return &cp
}

// Ask resolves one logical completion call across the configured providers
// and models.
func (c *Client) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	rt, err := c.ensureRouter()
	if err != nil {
		return AskResponse{}, err
	}
	return rt.Ask(ctx, req)
}

// AskChat is Ask with conversation memory keyed by chatID.
func (c *Client) AskChat(ctx context.Context, chatID string, req AskRequest) (AskResponse, error) {
	bridge, err := c.ensureBridge()
	if err != nil {
		return AskResponse{}, err
	}
	return bridge.Ask(ctx, chatID, req)
}

// ClearChat deletes the stored conversation for chatID.
func (c *Client) ClearChat(ctx context.Context, chatID string) error {
	bridge, err := c.ensureBridge()
	if err != nil {
		return err
	}
	return bridge.Clear(ctx, chatID)
}

// Transcribe converts audio to text using the first capable provider, with
// fallback across capable providers.
func (c *Client) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	rt, err := c.ensureRouter()
	if err != nil {
		return "", err
	}
	return rt.Transcribe(ctx, req)
}

// Classify moderates inputs using exactly the first capable provider.
func (c *Client) Classify(ctx context.Context, inputs []string) ([]ModerationResult, error) {
	rt, err := c.ensureRouter()
	if err != nil {
		return nil, err
	}
	return rt.Classify(ctx, inputs)
}

// LastUsed reports which provider/model pair served the last successful Ask.
func (c *Client) LastUsed() (Selection, bool) {
	c.mu.Lock()
	rt := c.rt
	c.mu.Unlock()
	if rt == nil {
		return Selection{}, false
	}
	return rt.LastUsed()
}

// Close drains background persistence and releases the history store the
// client opened itself. Caller-supplied stores stay open. Idempotent.
func (c *Client) Close() error {
	c.tasks.Wait()
	c.mu.Lock()
	owned := c.ownedStore
	c.mu.Unlock()
	if owned != nil {
		return owned.Close()
	}
	return nil
}

// ensureRouter builds provider bindings on first use and reuses them for the
// client's lifetime.
func (c *Client) ensureRouter() (*router, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rt != nil {
		return c.rt, nil
	}

	type section struct {
		id    ProviderID
		cfg   *ProviderConfig
		build func(ProviderConfig) (providerClient, error)
	}
	sections := []section{
		{ProviderOpenAI, c.cfg.OpenAI, func(pc ProviderConfig) (providerClient, error) { return newOpenAIProvider(pc) }},
		{ProviderGroq, c.cfg.Groq, func(pc ProviderConfig) (providerClient, error) { return newGroqProvider(pc) }},
		{ProviderGoogle, c.cfg.Google, func(pc ProviderConfig) (providerClient, error) { return newGoogleProvider(pc) }},
	}

	bindings := make(map[ProviderID]*binding)
	var order []ProviderID
	for _, s := range sections {
		if s.cfg == nil {
			continue
		}
		pc := *s.cfg
		if pc.HTTPClient == nil {
			pc.HTTPClient = c.cfg.HTTPClient
		}
		client, err := s.build(pc)
		if err != nil {
			return nil, err
		}
		bindings[s.id] = &binding{
			pid:    s.id,
			client: client,
			resolver: NewResolver(ResolverConfig{
				Primary:       pc.Model,
				Fallbacks:     pc.FallbackModels,
				Timeout:       pc.Timeout,
				FirstToFinish: pc.FirstToFinish,
				Provider:      s.id,
				Events:        c.events,
			}),
		}
		order = append(order, s.id)
	}

	c.rt = &router{
		bindings:      bindings,
		order:         order,
		primary:       c.cfg.Primary,
		firstToFinish: c.cfg.FirstToFinish,
		events:        c.events,
	}
	return c.rt, nil
}

// ensureBridge builds the memory bridge (and its store) on first use.
func (c *Client) ensureBridge() (*MemoryBridge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bridge != nil {
		return c.bridge, nil
	}

	store := c.cfg.History.Store
	if store == nil {
		if c.cfg.History.Path == "" {
			return nil, &ConfigError{Reason: "history is not configured"}
		}
		owned := NewSQLiteHistory(SQLiteHistoryConfig{
			Path:   c.cfg.History.Path,
			Events: c.events,
			Tasks:  c.tasks,
		})
		c.ownedStore = owned
		store = owned
	}

	c.bridge = NewMemoryBridge(c, MemoryConfig{
		Store:  store,
		Scope:  c.cfg.History.Scope,
		Limit:  c.cfg.History.Limit,
		Events: c.events,
		Tasks:  c.tasks,
	})
	return c.bridge, nil
}
