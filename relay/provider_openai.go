package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultModerationModel = "omni-moderation-latest"

type openAIProvider struct {
	client             *openai.Client
	transcriptionModel string
	moderationModel    string
}

func newOpenAIProvider(cfg ProviderConfig) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("relay: OpenAI API key is required")
	}
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		c.HTTPClient = cfg.HTTPClient
	}
	transcription := cfg.TranscriptionModel
	if transcription == "" {
		transcription = openai.Whisper1
	}
	moderation := cfg.ModerationModel
	if moderation == "" {
		moderation = defaultModerationModel
	}
	return &openAIProvider{
		client:             openai.NewClientWithConfig(c),
		transcriptionModel: transcription,
		moderationModel:    moderation,
	}, nil
}

func (p *openAIProvider) id() ProviderID { return ProviderOpenAI }

func (p *openAIProvider) complete(ctx context.Context, plan callPlan) (callResult, error) {
	return completeOpenAICompatible(ctx, p.client, plan)
}

func (p *openAIProvider) transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.transcriptionModel
	}
	res, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: transcriptionFilename(req),
		Reader:   bytes.NewReader(req.Audio),
		Prompt:   req.Prompt,
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (p *openAIProvider) moderate(ctx context.Context, inputs []string, model string) ([]ModerationResult, error) {
	if model == "" {
		model = p.moderationModel
	}
	out := make([]ModerationResult, 0, len(inputs))
	for _, input := range inputs {
		res, err := p.client.Moderations(ctx, openai.ModerationRequest{
			Input: input,
			Model: model,
		})
		if err != nil {
			return nil, err
		}
		if len(res.Results) == 0 {
			return nil, fmt.Errorf("relay: moderation returned no result for input %q", input)
		}
		out = append(out, toModerationResult(res.Results[0]))
	}
	return out, nil
}

func toModerationResult(r openai.Result) ModerationResult {
	return ModerationResult{
		Flagged: r.Flagged,
		Categories: map[string]bool{
			"hate":                   r.Categories.Hate,
			"hate/threatening":       r.Categories.HateThreatening,
			"harassment":             r.Categories.Harassment,
			"harassment/threatening": r.Categories.HarassmentThreatening,
			"self-harm":              r.Categories.SelfHarm,
			"self-harm/intent":       r.Categories.SelfHarmIntent,
			"self-harm/instructions": r.Categories.SelfHarmInstructions,
			"sexual":                 r.Categories.Sexual,
			"sexual/minors":          r.Categories.SexualMinors,
			"violence":               r.Categories.Violence,
			"violence/graphic":       r.Categories.ViolenceGraphic,
		},
		Scores: map[string]float64{
			"hate":                   float64(r.CategoryScores.Hate),
			"hate/threatening":       float64(r.CategoryScores.HateThreatening),
			"harassment":             float64(r.CategoryScores.Harassment),
			"harassment/threatening": float64(r.CategoryScores.HarassmentThreatening),
			"self-harm":              float64(r.CategoryScores.SelfHarm),
			"self-harm/intent":       float64(r.CategoryScores.SelfHarmIntent),
			"self-harm/instructions": float64(r.CategoryScores.SelfHarmInstructions),
			"sexual":                 float64(r.CategoryScores.Sexual),
			"sexual/minors":          float64(r.CategoryScores.SexualMinors),
			"violence":               float64(r.CategoryScores.Violence),
			"violence/graphic":       float64(r.CategoryScores.ViolenceGraphic),
		},
	}
}

// completeOpenAICompatible shapes a plan for any OpenAI-compatible chat API.
// Shared with the Groq provider, which speaks the same wire protocol.
func completeOpenAICompatible(ctx context.Context, client *openai.Client, plan callPlan) (callResult, error) {
	req := openai.ChatCompletionRequest{
		Model:    plan.Model,
		Messages: toOpenAIMessages(plan),
	}
	if plan.Temperature != nil {
		req.Temperature = *plan.Temperature
	}
	if plan.MaxOutputTokens != nil {
		req.MaxCompletionTokens = *plan.MaxOutputTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return callResult{}, err
	}
	if len(resp.Choices) == 0 {
		return callResult{}, errors.New("relay: no choices in response")
	}

	cr := callResult{Text: resp.Choices[0].Message.Content}
	if resp.Usage.PromptTokens > 0 {
		pt := resp.Usage.PromptTokens
		cr.PromptTokens = &pt
	}
	if resp.Usage.CompletionTokens > 0 {
		ct := resp.Usage.CompletionTokens
		cr.CompletionTokens = &ct
	}
	if resp.Usage.TotalTokens > 0 {
		tt := resp.Usage.TotalTokens
		cr.TotalTokens = &tt
	}
	return cr, nil
}

func toOpenAIMessages(plan callPlan) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(plan.Messages)+1)
	if plan.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: plan.System,
		})
	}
	for _, m := range plan.Messages {
		msgs = append(msgs, toOpenAIMessage(m))
	}
	return msgs
}

func toOpenAIMessage(m Message) openai.ChatCompletionMessage {
	role := openai.ChatMessageRoleUser
	switch m.Role {
	case RoleAssistant:
		role = openai.ChatMessageRoleAssistant
	case RoleSystem:
		role = openai.ChatMessageRoleSystem
	}

	if len(m.Content.Parts) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: m.Content.Text}
	}

	parts := make([]openai.ChatMessagePart, 0, len(m.Content.Parts))
	for _, p := range m.Content.Parts {
		switch {
		case p.Attachment != nil:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: attachmentDataURI(*p.Attachment),
				},
			})
		case p.Text != "":
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		}
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}
