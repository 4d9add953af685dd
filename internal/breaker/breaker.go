// Package breaker tracks consecutive failures per provider and suspends
// a failing provider's tools until it recovers. Breakers are scoped per
// provider so a slow or broken provider never degrades unrelated tools.
package breaker

import (
	"sync"
	"time"
)

// State of one provider's breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config holds the failure threshold and cool-down for all providers.
type Config struct {
	// Threshold is the consecutive-failure count that opens the breaker.
	Threshold int
	// CoolDown is how long an open breaker rejects calls before admitting
	// a single half-open trial.
	CoolDown time.Duration
}

// DefaultConfig matches a small deployment: open after 5 consecutive
// failures, retry after 30 seconds.
func DefaultConfig() Config {
	return Config{Threshold: 5, CoolDown: 30 * time.Second}
}

type providerState struct {
	failures      int
	state         State
	openedAt      time.Time
	trialInFlight bool
}

// Breaker holds one state machine per provider name.
type Breaker struct {
	mu        sync.Mutex
	cfg       Config
	providers map[string]*providerState
	now       func() time.Time
}

// New creates a Breaker with the given config.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = DefaultConfig().CoolDown
	}
	return &Breaker{
		cfg:       cfg,
		providers: make(map[string]*providerState),
		now:       time.Now,
	}
}

// Allow reports whether a call to the provider may proceed, and the
// breaker state the decision was made in. While open, every call is
// rejected until the cool-down elapses; then exactly one trial call is
// admitted in half-open state.
func (b *Breaker) Allow(provider string) (bool, State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.state(provider)
	switch ps.state {
	case StateClosed:
		return true, StateClosed

	case StateOpen:
		if b.now().Sub(ps.openedAt) < b.cfg.CoolDown {
			return false, StateOpen
		}
		ps.state = StateHalfOpen
		ps.trialInFlight = true
		return true, StateHalfOpen

	case StateHalfOpen:
		if ps.trialInFlight {
			return false, StateHalfOpen
		}
		ps.trialInFlight = true
		return true, StateHalfOpen
	}
	return true, StateClosed
}

// RecordSuccess resets the provider's failure count and closes the breaker.
func (b *Breaker) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.state(provider)
	ps.failures = 0
	ps.state = StateClosed
	ps.trialInFlight = false
}

// RecordFailure increments the failure count and opens the breaker once
// the threshold is crossed. A failed half-open trial re-opens immediately.
func (b *Breaker) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ps := b.state(provider)
	if ps.state == StateHalfOpen {
		ps.state = StateOpen
		ps.openedAt = b.now()
		ps.trialInFlight = false
		return
	}

	ps.failures++
	if ps.failures >= b.cfg.Threshold {
		ps.state = StateOpen
		ps.openedAt = b.now()
	}
}

// Snapshot returns the provider's current state without mutating it.
func (b *Breaker) Snapshot(provider string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state(provider).state
}

func (b *Breaker) state(provider string) *providerState {
	ps, ok := b.providers[provider]
	if !ok {
		ps = &providerState{state: StateClosed}
		b.providers[provider] = ps
	}
	return ps
}

// SetClock overrides the time source, for tests.
func (b *Breaker) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}
