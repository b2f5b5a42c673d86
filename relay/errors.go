package relay

import "fmt"

// Cause classifies why a single attempt failed.
type Cause string

const (
	// CauseTimeout means the attempt's time budget expired before the call returned.
	CauseTimeout Cause = "timeout"
	// CauseProviderError means the network call or the provider itself errored.
	CauseProviderError Cause = "provider_error"
	// CauseEmptyResponse means the call succeeded but produced empty or
	// whitespace-only text, which never counts as a success.
	CauseEmptyResponse Cause = "empty_response"
)

// ConfigError reports invalid or missing configuration. It is surfaced
// immediately, before any network attempt is made.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "relay: " + e.Reason
}

// ErrMissingChatID is returned by history-bound calls invoked without a chat id.
var ErrMissingChatID = &ConfigError{Reason: "chat id is required"}

// AttemptError is the failure of one candidate. Model identifies the failed
// candidate in provider-internal resolution; at the router level Provider is
// set instead and Model is empty.
type AttemptError struct {
	Provider ProviderID
	Model    string
	Cause    Cause
	Err      error
}

func (e *AttemptError) Error() string {
	candidate := e.Model
	if candidate == "" {
		candidate = string(e.Provider)
	}
	if e.Err != nil {
		return fmt.Sprintf("relay: attempt %q failed (%s): %v", candidate, e.Cause, e.Err)
	}
	return fmt.Sprintf("relay: attempt %q failed (%s)", candidate, e.Cause)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// ExhaustionError means every candidate failed. Last is the most recent
// failure: roster order in sequential mode, completion order when racing.
type ExhaustionError struct {
	Last *AttemptError
}

func (e *ExhaustionError) Error() string {
	if e.Last == nil {
		return "relay: all candidates failed"
	}
	return "relay: all candidates failed, last: " + e.Last.Error()
}

func (e *ExhaustionError) Unwrap() error { return e.Last }
