package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects events from concurrent attempts.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handler() EventHandler {
	return func(ev Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, ev)
	}
}

func (r *eventRecorder) byKind(kind EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// attemptLog records which candidates were attempted, in order.
type attemptLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *attemptLog) record(candidate string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, candidate)
}

func (l *attemptLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func TestResolve_SequentialFallback(t *testing.T) {
	rec := &eventRecorder{}
	log := &attemptLog{}
	r := NewResolver(ResolverConfig{
		Primary:   "A",
		Fallbacks: []string{"B", "C", "D"},
		Provider:  ProviderOpenAI,
		Events:    rec.handler(),
	})

	res, err := r.Resolve(context.Background(), func(_ context.Context, model string) (string, error) {
		log.record(model)
		if model == "C" {
			return "hi", nil
		}
		return "", errors.New("boom")
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Text)
	assert.Equal(t, "C", res.Winner)

	// A and B each failed once; D was never attempted after C succeeded.
	assert.Equal(t, []string{"A", "B", "C"}, log.snapshot())
	failures := rec.byKind(EventAttemptFailed)
	require.Len(t, failures, 2)
	assert.Equal(t, "A", failures[0].Model)
	assert.Equal(t, "B", failures[1].Model)
	assert.Equal(t, ProviderOpenAI, failures[0].Provider)
}

func TestResolve_ExhaustionCarriesLastCause(t *testing.T) {
	r := NewResolver(ResolverConfig{
		Primary:   "A",
		Fallbacks: []string{"B"},
		Timeout:   30 * time.Millisecond,
		Events:    func(Event) {},
	})

	_, err := r.Resolve(context.Background(), func(_ context.Context, model string) (string, error) {
		if model == "A" {
			return "", errors.New("x")
		}
		time.Sleep(200 * time.Millisecond) // B times out
		return "late", nil
	})

	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "B", exhausted.Last.Model)
	assert.Equal(t, CauseTimeout, exhausted.Last.Cause)
}

func TestResolve_RacingSettlesOnce(t *testing.T) {
	r := NewResolver(ResolverConfig{
		Primary:       "A",
		Fallbacks:     []string{"B", "C"},
		FirstToFinish: true,
		Events:        func(Event) {},
	})

	started := make(chan string, 3)
	res, err := r.Resolve(context.Background(), func(_ context.Context, model string) (string, error) {
		started <- model
		switch model {
		case "B":
			time.Sleep(10 * time.Millisecond)
			return "fast", nil
		case "A":
			time.Sleep(80 * time.Millisecond)
			return "slow-success", nil
		default:
			time.Sleep(120 * time.Millisecond)
			return "", errors.New("slowest")
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Winner)
	assert.Equal(t, "fast", res.Text)

	// Every candidate was launched; A's later success did not change the
	// winner and did not resolve twice.
	require.Len(t, started, 3)
}

func TestResolve_RacingExhaustionLastByCompletionTime(t *testing.T) {
	r := NewResolver(ResolverConfig{
		Primary:       "A",
		Fallbacks:     []string{"B"},
		FirstToFinish: true,
		Events:        func(Event) {},
	})

	_, err := r.Resolve(context.Background(), func(_ context.Context, model string) (string, error) {
		if model == "A" {
			time.Sleep(60 * time.Millisecond)
			return "", errors.New("slow failure")
		}
		return "", errors.New("quick failure")
	})

	// A is listed first but fails last; its cause must win.
	var exhausted *ExhaustionError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "A", exhausted.Last.Model)
	assert.EqualError(t, exhausted.Last.Err, "slow failure")
}

func TestResolve_EmptyTextIsFailure(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		t.Run(fmt.Sprintf("%q", text), func(t *testing.T) {
			rec := &eventRecorder{}
			r := NewResolver(ResolverConfig{Primary: "A", Events: rec.handler()})

			_, err := r.Resolve(context.Background(), func(_ context.Context, _ string) (string, error) {
				return text, nil
			})

			var exhausted *ExhaustionError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, CauseEmptyResponse, exhausted.Last.Cause)
			assert.Len(t, rec.byKind(EventAttemptFailed), 1)
		})
	}
}

func TestResolve_EmptyTextFallsBack(t *testing.T) {
	r := NewResolver(ResolverConfig{
		Primary:   "A",
		Fallbacks: []string{"B"},
		Events:    func(Event) {},
	})

	res, err := r.Resolve(context.Background(), func(_ context.Context, model string) (string, error) {
		if model == "A" {
			return "", nil
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "B", res.Winner)
}

func TestResolve_EmptyRosterFailsFast(t *testing.T) {
	log := &attemptLog{}
	r := NewResolver(ResolverConfig{Events: func(Event) {}})

	_, err := r.Resolve(context.Background(), func(_ context.Context, model string) (string, error) {
		log.record(model)
		return "never", nil
	})

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Empty(t, log.snapshot(), "no attempt may run without candidates")
}

func TestResolve_SingleCandidateIgnoresRacingFlag(t *testing.T) {
	r := NewResolver(ResolverConfig{
		Primary:       "only",
		FirstToFinish: true,
		Events:        func(Event) {},
	})

	res, err := r.Resolve(context.Background(), func(_ context.Context, model string) (string, error) {
		return "answer", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "only", res.Winner)
}

func TestResolve_ZeroTimeoutWaits(t *testing.T) {
	r := NewResolver(ResolverConfig{Primary: "A", Events: func(Event) {}})

	res, err := r.Resolve(context.Background(), func(_ context.Context, _ string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "eventually", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "eventually", res.Text)
}
