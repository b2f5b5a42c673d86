package relay

import "context"

// providerClient is the internal interface each backend implements.
type providerClient interface {
	id() ProviderID
	// complete executes one chat completion for the given plan.
	complete(ctx context.Context, plan callPlan) (callResult, error)
}

// transcriber is implemented by providers that can turn audio into text.
type transcriber interface {
	transcribe(ctx context.Context, req TranscriptionRequest) (string, error)
}

// moderator is implemented by providers that can classify text.
type moderator interface {
	moderate(ctx context.Context, inputs []string, model string) ([]ModerationResult, error)
}

// callPlan is the normalized, provider-agnostic payload for one completion
// call. The same plan is shared by every candidate in a racing roster; only
// Model differs per attempt.
type callPlan struct {
	Model    string
	System   string
	Messages []Message

	Temperature     *float32
	MaxOutputTokens *int
}

// callResult is the provider-agnostic result of one call execution.
type callResult struct {
	Text string

	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
}

// transcriptionFilename picks the multipart filename for an audio upload.
// Whisper-style endpoints infer the codec from the extension and reject
// extensionless uploads, so the fallback carries one.
func transcriptionFilename(req TranscriptionRequest) string {
	if req.Filename != "" {
		return req.Filename
	}
	return "audio.mp3"
}

// planFromRequest folds an AskRequest into a callPlan: prior context first,
// then the normalized new user input. Model is filled per attempt.
func planFromRequest(req AskRequest) callPlan {
	msgs := make([]Message, 0, len(req.PriorMessages)+1)
	msgs = append(msgs, req.PriorMessages...)
	msgs = append(msgs, Message{Role: RoleUser, Content: userContent(req.Input, req.Attachments)})
	return callPlan{
		System:          req.SystemPrompt,
		Messages:        msgs,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	}
}
