package relay

import (
	"net/http"
	"time"
)

// Defaults for conversation memory.
const (
	DefaultScope        = "default"
	DefaultHistoryLimit = 10
)

// ProviderConfig configures one backend binding. A nil section in Config
// leaves the provider unbound.
type ProviderConfig struct {
	// APIKey authenticates against the provider. With Config.DetectEnv set,
	// missing keys are pulled from the environment.
	APIKey string
	// BaseURL overrides the provider endpoint (custom gateways, proxies).
	BaseURL string

	// Model is the primary candidate; FallbackModels follow in order.
	Model          string
	FallbackModels []string

	// FirstToFinish races all of this provider's candidates instead of
	// falling back sequentially.
	FirstToFinish bool

	// Timeout bounds each model attempt. Zero waits indefinitely.
	Timeout time.Duration

	// TranscriptionModel and ModerationModel override the provider defaults
	// where the capability exists.
	TranscriptionModel string
	ModerationModel    string

	// HTTPClient overrides the shared client for this provider only.
	HTTPClient *http.Client
}

// HistoryConfig configures conversation memory for AskChat.
type HistoryConfig struct {
	// Path is the SQLite file backing the default store. Ignored when Store
	// is set.
	Path string
	// Store plugs in a custom HistoryStore implementation.
	Store HistoryStore
	// Scope namespaces conversations (default "default").
	Scope string
	// Limit is how many recent turns are replayed per call (default 10).
	Limit int
}

// Config contains client-wide configuration. Providers are registered by
// filling their sections; registration order is fixed as OpenAI, Groq,
// Google, with Primary (when bound) always ordered first.
type Config struct {
	OpenAI *ProviderConfig
	Groq   *ProviderConfig
	Google *ProviderConfig

	// Primary designates the provider tried or raced first.
	Primary ProviderID

	// FirstToFinish races whole providers against each other; each provider
	// still runs its own internal model resolution.
	FirstToFinish bool

	// History enables AskChat conversation memory.
	History HistoryConfig

	// Events receives diagnostics (attempt and persistence failures).
	// Defaults to a stderr logger.
	Events EventHandler

	// HTTPClient is shared by providers that do not set their own.
	HTTPClient *http.Client

	// DetectEnv pulls missing API keys from OPENAI_API_KEY, GROQ_API_KEY and
	// GOOGLE_API_KEY.
	DetectEnv bool
}
