// Package resilience provides a circuit breaker used to degrade optional
// paths (embedding calls, vector search) instead of failing requests.
package resilience

import (
	"sync"
	"time"
)

// State is the breaker state.
type State int

const (
	// StateClosed allows requests to proceed normally.
	StateClosed State = iota

	// StateOpen blocks requests during cooldown.
	StateOpen

	// StateHalfOpen allows probe requests to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes trip and recovery thresholds.
type BreakerConfig struct {
	// ConsecutiveFailures is the count-based trip threshold.
	ConsecutiveFailures int `yaml:"consecutive_failures"`

	// Cooldown is the time before transitioning to half-open.
	Cooldown time.Duration `yaml:"cooldown"`

	// SuccessThreshold is the number of half-open successes needed to close.
	SuccessThreshold int `yaml:"success_threshold"`
}

// DefaultBreakerConfig returns the default thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		ConsecutiveFailures: 3,
		Cooldown:            30 * time.Second,
		SuccessThreshold:    2,
	}
}

// Breaker is a minimal circuit breaker guarding one resource.
type Breaker struct {
	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastChange  time.Time
	config      BreakerConfig
	resourceID  string
	now         func() time.Time
}

// NewBreaker creates a closed breaker for a resource.
func NewBreaker(resourceID string, config BreakerConfig) *Breaker {
	if config.ConsecutiveFailures <= 0 {
		config.ConsecutiveFailures = DefaultBreakerConfig().ConsecutiveFailures
	}
	if config.Cooldown <= 0 {
		config.Cooldown = DefaultBreakerConfig().Cooldown
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = DefaultBreakerConfig().SuccessThreshold
	}
	return &Breaker{
		state:      StateClosed,
		config:     config,
		resourceID: resourceID,
		lastChange: time.Now(),
		now:        time.Now,
	}
}

// Allow reports whether a request should proceed. An open breaker whose
// cooldown has expired transitions to half-open and allows one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.lastChange) < b.config.Cooldown {
			return false
		}
		b.transition(StateHalfOpen)
	}
	return true
}

// RecordResult tracks the outcome of an operation.
func (b *Breaker) RecordResult(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.failures++
	b.successes = 0
	if b.state != StateOpen && b.failures >= b.config.ConsecutiveFailures {
		b.transition(StateOpen)
	}
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ResourceID returns the guarded resource identifier.
func (b *Breaker) ResourceID() string { return b.resourceID }

func (b *Breaker) transition(state State) {
	b.state = state
	b.lastChange = b.now()
	if state == StateClosed {
		b.failures = 0
	}
	b.successes = 0
}
