package relay

import (
	"bytes"
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// Groq exposes an OpenAI-compatible API, so the same SDK serves it with a
// different base URL. Groq offers chat and Whisper transcription but no
// moderation endpoint, so groqProvider deliberately does not implement
// moderator.
const (
	groqBaseURL                   = "https://api.groq.com/openai/v1"
	groqDefaultTranscriptionModel = "whisper-large-v3"
)

type groqProvider struct {
	client             *openai.Client
	transcriptionModel string
}

func newGroqProvider(cfg ProviderConfig) (*groqProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("relay: Groq API key is required")
	}
	c := openai.DefaultConfig(cfg.APIKey)
	c.BaseURL = groqBaseURL
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		c.HTTPClient = cfg.HTTPClient
	}
	transcription := cfg.TranscriptionModel
	if transcription == "" {
		transcription = groqDefaultTranscriptionModel
	}
	return &groqProvider{
		client:             openai.NewClientWithConfig(c),
		transcriptionModel: transcription,
	}, nil
}

func (p *groqProvider) id() ProviderID { return ProviderGroq }

func (p *groqProvider) complete(ctx context.Context, plan callPlan) (callResult, error) {
	return completeOpenAICompatible(ctx, p.client, plan)
}

func (p *groqProvider) transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
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
