package relay

// ProviderID identifies which backend serves a call.
type ProviderID string

const (
	ProviderOpenAI ProviderID = "openai"
	ProviderGroq   ProviderID = "groq"
	ProviderGoogle ProviderID = "google"
)

// Role tags one side of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Attachment is a binary payload (typically an image) sent alongside text.
// Data is carried inline; providers encode it as a data URI or inline blob.
type Attachment struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data,omitempty"`
}

// ContentPart is one element of structured message content: either a text
// fragment or an attachment, never both.
type ContentPart struct {
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Content is the normalized message body: plain text, or an ordered list of
// typed parts. The shape is decided once at the boundary; providers only ever
// see this form.
type Content struct {
	Text  string        `json:"text,omitempty"`
	Parts []ContentPart `json:"parts,omitempty"`
}

// TextContent wraps plain text as Content.
func TextContent(s string) Content {
	return Content{Text: s}
}

// Empty reports whether the content carries nothing worth sending or storing.
func (c Content) Empty() bool {
	if c.Text != "" {
		return false
	}
	for _, p := range c.Parts {
		if p.Text != "" || (p.Attachment != nil && len(p.Attachment.Data) > 0) {
			return false
		}
	}
	return true
}

// Message is one role-tagged message in a request context.
type Message struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

// AskRequest is the unified request for a logical completion call.
type AskRequest struct {
	// SystemPrompt is an optional instruction prepended to the conversation.
	SystemPrompt string
	// Input is the new user input.
	Input string
	// Attachments ride along with Input as structured content parts.
	Attachments []Attachment
	// PriorMessages is optional caller-supplied context, oldest first.
	// History-bound calls prepend stored turns ahead of these.
	PriorMessages []Message

	// Sampling parameters, applied where the provider supports them.
	Temperature     *float32
	MaxOutputTokens *int
}

// AskResponse is the provider-agnostic result of a successful call.
type AskResponse struct {
	Text     string
	Provider ProviderID
	Model    string

	// Token usage, if the winning provider reported it.
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
}

// Selection records which provider/model pair served the last successful call.
type Selection struct {
	Provider ProviderID
	Model    string
}

// TranscriptionRequest asks a capable provider to turn audio into text.
type TranscriptionRequest struct {
	// Audio is the raw file content.
	Audio []byte
	// Filename hints the container format to the provider (e.g. "clip.ogg").
	Filename string
	// Model overrides the provider's default transcription model.
	Model string
	// Prompt optionally guides the transcription.
	Prompt string
}

// ModerationResult holds per-input moderation categories and scores.
type ModerationResult struct {
	Flagged    bool
	Categories map[string]bool
	Scores     map[string]float64
}
