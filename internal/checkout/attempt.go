package checkout

import (
	"context"
	"sync"
)

// State is where a checkout attempt is in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

var attemptTransitions = map[State][]State{
	StateIdle:       {StateSubmitting},
	StateSubmitting: {StateSucceeded, StateFailed},
	StateFailed:     {StateIdle},
}

// CanTransitionTo reports whether an attempt may move from s to next.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range attemptTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Submitter opens a checkout session; *Composer implements it.
type Submitter interface {
	Submit(ctx context.Context, req *Request) (*Result, error)
}

// Attempt tracks one shopper-initiated checkout. It submits at most once at a
// time and never retries on its own; after a failure it is idle again and the
// shopper may submit anew.
//
// Attempts do not deduplicate: two attempts for the same cart open two
// payment sessions.
type Attempt struct {
	mu     sync.Mutex
	state  State
	result *Result
	err    error

	// OnTransition, if set, is called after every state change.
	OnTransition func(from, to State)
}

func NewAttempt() *Attempt {
	return &Attempt{state: StateIdle}
}

func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Result returns the session of a succeeded attempt, or the error of the last
// failed one. A failed attempt is already idle again.
func (a *Attempt) Result() (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result, a.err
}

// Submit runs one submission. It returns ErrAttemptInFlight if the attempt is
// already submitting or has succeeded.
func (a *Attempt) Submit(ctx context.Context, s Submitter, req *Request) (*Result, error) {
	a.mu.Lock()
	if !a.state.CanTransitionTo(StateSubmitting) {
		a.mu.Unlock()
		return nil, ErrAttemptInFlight
	}
	a.transition(StateSubmitting)
	a.mu.Unlock()

	result, err := s.Submit(ctx, req)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.result, a.err = nil, err
		a.transition(StateFailed)
		a.transition(StateIdle)
		return nil, err
	}
	a.result, a.err = result, nil
	a.transition(StateSucceeded)
	return result, nil
}

// transition must be called with mu held.
func (a *Attempt) transition(next State) {
	from := a.state
	a.state = next
	if a.OnTransition != nil {
		a.OnTransition(from, next)
	}
}
