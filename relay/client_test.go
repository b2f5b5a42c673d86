package relay

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DetectEnvFillsBoundSections(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	_ = os.Unsetenv("GOOGLE_API_KEY")

	c := New(Config{
		DetectEnv: true,
		OpenAI:    &ProviderConfig{Model: "gpt-4o"},
		Groq:      &ProviderConfig{Model: "llama-3.3-70b-versatile"},
	})
	require.NotNil(t, c)
	assert.Equal(t, "sk-test", c.cfg.OpenAI.APIKey)
	assert.Equal(t, "gsk-test", c.cfg.Groq.APIKey)
	assert.Nil(t, c.cfg.Google, "unbound sections stay unbound")
}

func TestNew_ExplicitKeysWinOverEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	c := New(Config{
		DetectEnv: true,
		OpenAI:    &ProviderConfig{APIKey: "sk-explicit", Model: "gpt-4o"},
	})
	assert.Equal(t, "sk-explicit", c.cfg.OpenAI.APIKey)
}

func TestNew_DoesNotMutateCallerConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")

	section := &ProviderConfig{Model: "gpt-4o"}
	_ = New(Config{DetectEnv: true, OpenAI: section})
	assert.Empty(t, section.APIKey, "caller's section must not be written to")
}

func TestClient_AskWithoutProvidersFailsFast(t *testing.T) {
	c := New(Config{})

	_, err := c.Ask(context.Background(), AskRequest{Input: "hi"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestClient_AskWithEmptyRosterFailsBeforeNetwork(t *testing.T) {
	// A bound provider with no models configured must fail without any
	// network attempt.
	c := New(Config{
		OpenAI: &ProviderConfig{APIKey: "sk-test"},
	})

	_, err := c.Ask(context.Background(), AskRequest{Input: "hi"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestClient_AskChatWithoutHistoryConfig(t *testing.T) {
	c := New(Config{
		OpenAI: &ProviderConfig{APIKey: "sk-test", Model: "gpt-4o"},
	})

	_, err := c.AskChat(context.Background(), "chat-1", AskRequest{Input: "hi"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestClient_AskChatMissingChatID(t *testing.T) {
	c := New(Config{
		OpenAI:  &ProviderConfig{APIKey: "sk-test", Model: "gpt-4o"},
		History: HistoryConfig{Store: newMemStore()},
		Events:  func(Event) {},
	})

	_, err := c.AskChat(context.Background(), "", AskRequest{Input: "hi"})
	require.ErrorIs(t, err, ErrMissingChatID)
}

func TestClient_LastUsedInitiallyUnset(t *testing.T) {
	c := New(Config{
		OpenAI: &ProviderConfig{APIKey: "sk-test", Model: "gpt-4o"},
	})

	_, ok := c.LastUsed()
	assert.False(t, ok)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	c := New(Config{
		OpenAI: &ProviderConfig{APIKey: "sk-test", Model: "gpt-4o"},
	})
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}
