package relay

import (
	"context"
	"sync"
)

// binding pairs a provider with its own model-level resolver. Each binding
// resolves internally; the router composes bindings one level up.
type binding struct {
	pid      ProviderID
	client   providerClient
	resolver *Resolver
}

// ask runs the binding's full internal resolution for one request. All
// candidates share the same plan; only the model differs per attempt.
func (b *binding) ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	plan := planFromRequest(req)

	var mu sync.Mutex
	results := make(map[string]callResult)

	res, err := b.resolver.Resolve(ctx, func(ctx context.Context, model string) (string, error) {
		p := plan
		p.Model = model
		cr, err := b.client.complete(ctx, p)
		if err != nil {
			return "", err
		}
		mu.Lock()
		results[model] = cr
		mu.Unlock()
		return cr.Text, nil
	})
	if err != nil {
		return AskResponse{}, err
	}

	out := AskResponse{Text: res.Text, Provider: b.pid, Model: res.Winner}
	mu.Lock()
	if cr, ok := results[res.Winner]; ok {
		out.PromptTokens = cr.PromptTokens
		out.CompletionTokens = cr.CompletionTokens
		out.TotalTokens = cr.TotalTokens
	}
	mu.Unlock()
	return out, nil
}

// router orders provider bindings and applies the same resolution algorithm
// at the provider level: one "attempt" is a provider's entire internal
// fallback run.
type router struct {
	bindings      map[ProviderID]*binding
	order         []ProviderID
	primary       ProviderID
	firstToFinish bool
	events        EventHandler

	mu       sync.Mutex
	lastUsed *Selection
}

// orderedProviders returns the primary first (when bound), then the rest in
// registration order.
func (rt *router) orderedProviders() ([]ProviderID, error) {
	if len(rt.order) == 0 {
		return nil, &ConfigError{Reason: "no providers configured"}
	}
	out := make([]ProviderID, 0, len(rt.order))
	if _, ok := rt.bindings[rt.primary]; ok && rt.primary != "" {
		out = append(out, rt.primary)
	}
	for _, id := range rt.order {
		if id == rt.primary {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

func (rt *router) providerResolver(ids []ProviderID, race bool) *Resolver {
	roster := make([]string, len(ids))
	for i, id := range ids {
		roster[i] = string(id)
	}
	return NewResolver(ResolverConfig{
		Primary:       roster[0],
		Fallbacks:     roster[1:],
		FirstToFinish: race,
		ProviderLevel: true,
		Events:        rt.events,
	})
}

func (rt *router) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	ids, err := rt.orderedProviders()
	if err != nil {
		return AskResponse{}, err
	}

	var mu sync.Mutex
	results := make(map[ProviderID]AskResponse)

	res, rerr := rt.providerResolver(ids, rt.firstToFinish).Resolve(ctx, func(ctx context.Context, candidate string) (string, error) {
		b := rt.bindings[ProviderID(candidate)]
		resp, err := b.ask(ctx, req)
		if err != nil {
			return "", err
		}
		mu.Lock()
		results[b.pid] = resp
		mu.Unlock()
		return resp.Text, nil
	})
	if rerr != nil {
		return AskResponse{}, rerr
	}

	mu.Lock()
	resp := results[ProviderID(res.Winner)]
	mu.Unlock()

	rt.mu.Lock()
	rt.lastUsed = &Selection{Provider: resp.Provider, Model: resp.Model}
	rt.mu.Unlock()
	return resp, nil
}

// Transcribe falls back sequentially across the providers that support
// transcription. Racing is never applied here: audio uploads are expensive
// enough that duplicate in-flight requests are not worth a faster answer.
func (rt *router) Transcribe(ctx context.Context, req TranscriptionRequest) (string, error) {
	ids, err := rt.orderedProviders()
	if err != nil {
		return "", err
	}
	capable := make([]ProviderID, 0, len(ids))
	for _, id := range ids {
		if _, ok := rt.bindings[id].client.(transcriber); ok {
			capable = append(capable, id)
		}
	}
	if len(capable) == 0 {
		return "", &ConfigError{Reason: "no configured provider supports transcription"}
	}

	res, err := rt.providerResolver(capable, false).Resolve(ctx, func(ctx context.Context, candidate string) (string, error) {
		t := rt.bindings[ProviderID(candidate)].client.(transcriber)
		return t.transcribe(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Classify routes to exactly the first capable provider: no fallback and no
// racing, since moderation verdicts are not comparable across providers.
func (rt *router) Classify(ctx context.Context, inputs []string) ([]ModerationResult, error) {
	if len(inputs) == 0 {
		return nil, &ConfigError{Reason: "moderation inputs are required"}
	}
	ids, err := rt.orderedProviders()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if m, ok := rt.bindings[id].client.(moderator); ok {
			return m.moderate(ctx, inputs, "")
		}
	}
	return nil, &ConfigError{Reason: "no configured provider supports moderation"}
}

func (rt *router) LastUsed() (Selection, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.lastUsed == nil {
		return Selection{}, false
	}
	return *rt.lastUsed, true
}
