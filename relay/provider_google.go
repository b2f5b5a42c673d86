package relay

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

type googleProvider struct {
	client *genai.Client
}

func newGoogleProvider(cfg ProviderConfig) (*googleProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("relay: Google API key is required")
	}
	gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &googleProvider{client: gc}, nil
}

func (p *googleProvider) id() ProviderID { return ProviderGoogle }

func (p *googleProvider) complete(ctx context.Context, plan callPlan) (callResult, error) {
	cfg := &genai.GenerateContentConfig{}
	if plan.System != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: plan.System}},
		}
	}
	if plan.Temperature != nil {
		cfg.Temperature = genai.Ptr[float32](*plan.Temperature)
	}
	if plan.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = int32(*plan.MaxOutputTokens)
	}

	res, err := p.client.Models.GenerateContent(ctx, plan.Model, toGenAIContents(plan.Messages), cfg)
	if err != nil {
		return callResult{}, err
	}
	return toCallResultFromGenAI(res), nil
}

func toGenAIContents(msgs []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: toGenAIParts(m.Content)})
	}
	return out
}

func toGenAIParts(c Content) []*genai.Part {
	if len(c.Parts) == 0 {
		return []*genai.Part{{Text: c.Text}}
	}
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch {
		case p.Attachment != nil:
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{
					MIMEType: p.Attachment.MIMEType,
					Data:     p.Attachment.Data,
				},
			})
		case p.Text != "":
			parts = append(parts, &genai.Part{Text: p.Text})
		}
	}
	return parts
}

func toCallResultFromGenAI(res *genai.GenerateContentResponse) callResult {
	cr := callResult{}
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return cr
	}
	for _, p := range res.Candidates[0].Content.Parts {
		if p.Text == "" {
			continue
		}
		// Multiple text parts are concatenated with a newline.
		if cr.Text == "" {
			cr.Text = p.Text
		} else {
			cr.Text += "\n" + p.Text
		}
	}
	if res.UsageMetadata != nil {
		if res.UsageMetadata.PromptTokenCount > 0 {
			pt := int(res.UsageMetadata.PromptTokenCount)
			cr.PromptTokens = &pt
		}
		if res.UsageMetadata.CandidatesTokenCount > 0 {
			ct := int(res.UsageMetadata.CandidatesTokenCount)
			cr.CompletionTokens = &ct
		}
		if res.UsageMetadata.TotalTokenCount > 0 {
			tt := int(res.UsageMetadata.TotalTokenCount)
			cr.TotalTokens = &tt
		}
	}
	return cr
}
