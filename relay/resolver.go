package relay

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AttemptFactory produces one pending attempt: a network call for a single
// candidate that returns the extracted response text or an error.
type AttemptFactory func(ctx context.Context, candidate string) (string, error)

// Resolution is the outcome of a successful resolver run: the winning text
// and the candidate that produced it.
type Resolution struct {
	Text   string
	Winner string
}

// ResolverConfig configures one Resolver.
type ResolverConfig struct {
	// Primary is tried first; Fallbacks follow in order. Empty entries are
	// dropped, duplicates kept.
	Primary   string
	Fallbacks []string

	// Timeout bounds each individual attempt. Zero means wait indefinitely.
	Timeout time.Duration

	// FirstToFinish races every candidate concurrently and keeps the first
	// success. Ignored when the roster has a single entry.
	FirstToFinish bool

	// Provider labels failure events and errors. Leave empty when candidates
	// are themselves provider ids (router-level resolution).
	Provider ProviderID
	// ProviderLevel marks candidates as provider ids rather than model ids.
	ProviderLevel bool

	// Events receives attempt failures. Defaults to a stderr logger.
	Events EventHandler
}

// Resolver applies the sequential-fallback or first-to-finish algorithm over
// a fixed candidate roster. It is safe for concurrent use; each Resolve call
// carries its own bookkeeping.
type Resolver struct {
	roster        []string
	timeout       time.Duration
	firstToFinish bool
	provider      ProviderID
	providerLevel bool
	events        EventHandler
}

// NewResolver builds a Resolver from cfg. An empty roster is allowed here;
// Resolve fails fast with a ConfigError before any network attempt.
func NewResolver(cfg ResolverConfig) *Resolver {
	events := cfg.Events
	if events == nil {
		events = defaultEvents()
	}
	return &Resolver{
		roster:        BuildRoster(cfg.Primary, cfg.Fallbacks),
		timeout:       cfg.Timeout,
		firstToFinish: cfg.FirstToFinish,
		provider:      cfg.Provider,
		providerLevel: cfg.ProviderLevel,
		events:        events,
	}
}

// Roster returns a copy of the resolver's candidate list.
func (r *Resolver) Roster() []string {
	out := make([]string, len(r.roster))
	copy(out, r.roster)
	return out
}

// callIDKey carries the logical-ask correlation id through nested Resolve
// calls, so provider-level and model-level events share one CallID.
type callIDKey struct{}

// Resolve runs the configured strategy with attempt as the per-candidate
// call. Exactly one Resolution is produced even when racing; if every
// candidate fails, the returned ExhaustionError carries the last failure.
func (r *Resolver) Resolve(ctx context.Context, attempt AttemptFactory) (Resolution, error) {
	if len(r.roster) == 0 {
		return Resolution{}, &ConfigError{Reason: "no candidates configured"}
	}
	callID, ok := ctx.Value(callIDKey{}).(string)
	if !ok {
		callID = uuid.NewString()
		ctx = context.WithValue(ctx, callIDKey{}, callID)
	}
	if r.firstToFinish && len(r.roster) > 1 {
		return r.resolveRace(ctx, callID, attempt)
	}
	return r.resolveSequential(ctx, callID, attempt)
}

func (r *Resolver) resolveSequential(ctx context.Context, callID string, attempt AttemptFactory) (Resolution, error) {
	var last *AttemptError
	for _, candidate := range r.roster {
		text, aerr := r.runAttempt(ctx, callID, candidate, attempt)
		if aerr == nil {
			return Resolution{Text: text, Winner: candidate}, nil
		}
		last = aerr
	}
	return Resolution{}, &ExhaustionError{Last: last}
}

// resolveRace launches every candidate at once over one shared payload. The
// first success settles the result; losing attempts run to natural completion
// and their late outcomes are discarded. No cancellation is sent to losers,
// so racing wide rosters consumes quota on every candidate.
func (r *Resolver) resolveRace(ctx context.Context, callID string, attempt AttemptFactory) (Resolution, error) {
	type settled struct {
		candidate string
		text      string
		aerr      *AttemptError
	}
	outcomes := make(chan settled, len(r.roster))
	for _, candidate := range r.roster {
		candidate := candidate
		go func() {
			text, aerr := r.runAttempt(ctx, callID, candidate, attempt)
			outcomes <- settled{candidate: candidate, text: text, aerr: aerr}
		}()
	}

	// Last cause is tracked by completion time, not roster position.
	var last *AttemptError
	for remaining := len(r.roster); remaining > 0; remaining-- {
		s := <-outcomes
		if s.aerr == nil {
			return Resolution{Text: s.text, Winner: s.candidate}, nil
		}
		last = s.aerr
	}
	return Resolution{}, &ExhaustionError{Last: last}
}

// runAttempt executes one attempt with the resolver's time budget and returns
// a uniform verdict. A failure is always reported through the event handler;
// success is silent.
func (r *Resolver) runAttempt(ctx context.Context, callID, candidate string, attempt AttemptFactory) (string, *AttemptError) {
	var text string
	var err error
	if r.timeout > 0 {
		type outcome struct {
			text string
			err  error
		}
		done := make(chan outcome, 1)
		go func() {
			t, e := attempt(ctx, candidate)
			done <- outcome{text: t, err: e}
		}()
		timer := time.NewTimer(r.timeout)
		defer timer.Stop()
		select {
		case o := <-done:
			text, err = o.text, o.err
		case <-timer.C:
			// The in-flight call is abandoned, not canceled; a late result
			// lands in the buffered channel and is dropped.
			return "", r.fail(callID, candidate, CauseTimeout, nil)
		case <-ctx.Done():
			return "", r.fail(callID, candidate, CauseProviderError, ctx.Err())
		}
	} else {
		text, err = attempt(ctx, candidate)
	}

	if err != nil {
		return "", r.fail(callID, candidate, CauseProviderError, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", r.fail(callID, candidate, CauseEmptyResponse, nil)
	}
	return text, nil
}

func (r *Resolver) fail(callID, candidate string, cause Cause, err error) *AttemptError {
	aerr := &AttemptError{Provider: r.provider, Model: candidate, Cause: cause, Err: err}
	if r.providerLevel {
		aerr.Provider = ProviderID(candidate)
		aerr.Model = ""
	}
	r.events(Event{
		Kind:     EventAttemptFailed,
		CallID:   callID,
		Provider: aerr.Provider,
		Model:    aerr.Model,
		Cause:    cause,
		Err:      err,
	})
	return aerr
}
