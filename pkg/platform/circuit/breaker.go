// Package circuit provides a consecutive-failure circuit breaker for
// optional dependencies such as caches.
package circuit

import (
	"sync"
	"time"
)

const (
	defaultThreshold = 5
	defaultCooldown  = 30 * time.Second
)

// Breaker opens after threshold consecutive failures and stays open for
// cooldown. Once the cooldown expires calls are allowed again; the next
// failure reopens it immediately.
type Breaker struct {
	mu sync.Mutex

	name      string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	failures  int
	openUntil time.Time
	open      bool
}

type Option func(*Breaker)

func WithThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{name: name, threshold: defaultThreshold, cooldown: defaultCooldown, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

// Allow reports whether the protected call should be attempted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if b.now().Before(b.openUntil) {
		return false
	}
	// half-open: one more failure reopens
	b.open = false
	b.failures = b.threshold - 1
	return true
}

// RecordSuccess closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// RecordFailure counts a failure and reports whether it opened the circuit.
func (b *Breaker) RecordFailure() (opened bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures < b.threshold || b.open {
		return false
	}
	b.open = true
	b.openUntil = b.now().Add(b.cooldown)
	return true
}

func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Reset closes the circuit and clears the failure count.
func (b *Breaker) Reset() {
	b.RecordSuccess()
}
