// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snmp

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is a circuit breaker state.
type BreakerState int

const (
	// BreakerClosed passes requests through.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails fast.
	BreakerOpen
	// BreakerHalfOpen admits a bounded number of probe calls.
	BreakerHalfOpen
)

// String returns the string representation of the breaker state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerOptions configures a circuit breaker.
type BreakerOptions struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker.
	FailureThreshold int
	// RecoveryTimeout is how long an open breaker waits before probing.
	RecoveryTimeout time.Duration
	// HalfOpenMaxCalls bounds concurrent probe calls while half-open.
	HalfOpenMaxCalls int
	// RequiredSuccesses closes a half-open breaker.
	RequiredSuccesses int
	// IgnoreTerminal excludes terminal protocol/data errors from the
	// failure count; they indicate caller errors, not target health.
	IgnoreTerminal bool
	// Logger is the logger.
	Logger *slog.Logger
}

// NewBreakerOptions creates BreakerOptions with default values.
func NewBreakerOptions() *BreakerOptions {
	return &BreakerOptions{
		FailureThreshold:  5,
		RecoveryTimeout:   30 * time.Second,
		HalfOpenMaxCalls:  3,
		RequiredSuccesses: 3,
		IgnoreTerminal:    true,
	}
}

// BreakerOption is a functional option for configuring the breaker.
type BreakerOption func(*BreakerOptions)

// WithFailureThreshold sets the consecutive-failure count that opens the
// breaker.
func WithFailureThreshold(n int) BreakerOption {
	return func(o *BreakerOptions) {
		o.FailureThreshold = n
	}
}

// WithRecoveryTimeout sets the open-state probe delay.
func WithRecoveryTimeout(d time.Duration) BreakerOption {
	return func(o *BreakerOptions) {
		o.RecoveryTimeout = d
	}
}

// WithHalfOpenMaxCalls bounds concurrent half-open probes.
func WithHalfOpenMaxCalls(n int) BreakerOption {
	return func(o *BreakerOptions) {
		o.HalfOpenMaxCalls = n
	}
}

// WithRequiredSuccesses sets the successes needed to close.
func WithRequiredSuccesses(n int) BreakerOption {
	return func(o *BreakerOptions) {
		o.RequiredSuccesses = n
	}
}

// WithIgnoreTerminal controls whether terminal errors count as failures.
func WithIgnoreTerminal(ignore bool) BreakerOption {
	return func(o *BreakerOptions) {
		o.IgnoreTerminal = ignore
	}
}

// WithBreakerLogger sets the breaker logger.
func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(o *BreakerOptions) {
		o.Logger = logger
	}
}

// breakerRecord is the per-target FSM state. Created lazily on first
// observation, never destroyed except by explicit reset.
type breakerRecord struct {
	state          BreakerState
	failureCount   int
	successCount   int
	halfOpenCalls  int
	openedAt       time.Time
	lastFailure    time.Time
	lastFailureErr error
}

// Breaker isolates failing targets behind a per-target three-state FSM.
// Failures on one target never affect another's state.
type Breaker struct {
	opts    *BreakerOptions
	logger  *slog.Logger
	mu      sync.Mutex
	targets map[string]*breakerRecord
}

// NewBreaker creates a circuit breaker.
func NewBreaker(opts ...BreakerOption) *Breaker {
	options := NewBreakerOptions()
	for _, opt := range opts {
		opt(options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Breaker{
		opts:    options,
		logger:  logger,
		targets: make(map[string]*breakerRecord),
	}
}

func (b *Breaker) record(target string) *breakerRecord {
	rec, ok := b.targets[target]
	if !ok {
		rec = &breakerRecord{state: BreakerClosed}
		b.targets[target] = rec
	}
	return rec
}

// Call runs fn under the target's breaker with a per-call timeout. A
// timed-out call counts as a failure. When the breaker is open it fails
// fast with ErrCircuitOpen without invoking fn.
func (b *Breaker) Call(target string, timeout time.Duration, fn func() error) error {
	if err := b.admit(target); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	var err error
	if timeout > 0 {
		select {
		case err = <-errCh:
		case <-time.After(timeout):
			err = ErrTimeout
		}
	} else {
		err = <-errCh
	}

	b.observe(target, err)
	return err
}

// admit checks whether a call may proceed, handling the open→half-open
// transition after the recovery timeout.
func (b *Breaker) admit(target string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(target)
	switch rec.state {
	case BreakerClosed:
		return nil

	case BreakerOpen:
		if time.Since(rec.openedAt) < b.opts.RecoveryTimeout {
			return ErrCircuitOpen
		}
		b.transition(target, rec, BreakerHalfOpen)
		rec.halfOpenCalls = 1
		rec.successCount = 0
		return nil

	case BreakerHalfOpen:
		if rec.halfOpenCalls >= b.opts.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		rec.halfOpenCalls++
		return nil
	}
	return nil
}

// observe feeds a call outcome into the FSM.
func (b *Breaker) observe(target string, err error) {
	failure := err != nil
	if failure && b.opts.IgnoreTerminal && Terminal(err) {
		failure = false
		err = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(target)
	switch rec.state {
	case BreakerClosed:
		if !failure {
			rec.failureCount = 0
			return
		}
		rec.failureCount++
		rec.lastFailure = time.Now()
		rec.lastFailureErr = err
		if rec.failureCount >= b.opts.FailureThreshold {
			b.transition(target, rec, BreakerOpen)
			rec.openedAt = time.Now()
		}

	case BreakerHalfOpen:
		if rec.halfOpenCalls > 0 {
			rec.halfOpenCalls--
		}
		if failure {
			rec.lastFailure = time.Now()
			rec.lastFailureErr = err
			b.transition(target, rec, BreakerOpen)
			rec.openedAt = time.Now()
			rec.successCount = 0
			return
		}
		rec.successCount++
		if rec.successCount >= b.opts.RequiredSuccesses {
			b.transition(target, rec, BreakerClosed)
			rec.failureCount = 0
			rec.successCount = 0
			rec.halfOpenCalls = 0
		}

	case BreakerOpen:
		// Late completion from before the trip; the state is already
		// authoritative.
	}
}

// transition records a state change; identical consecutive transitions
// never occur because every change is driven by an event.
func (b *Breaker) transition(target string, rec *breakerRecord, to BreakerState) {
	from := rec.state
	rec.state = to
	b.logger.Info("circuit breaker transition",
		"target", target, "from", from.String(), "to", to.String())
}

// State returns the target's current state. Targets never observed are
// closed.
func (b *Breaker) State(target string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.targets[target]
	if !ok {
		return BreakerClosed
	}
	return rec.state
}

// ForceOpen opens a target's breaker for operator intervention.
func (b *Breaker) ForceOpen(target string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(target)
	if rec.state != BreakerOpen {
		b.transition(target, rec, BreakerOpen)
	}
	rec.openedAt = time.Now()
}

// ForceClose closes a target's breaker and resets its counters.
func (b *Breaker) ForceClose(target string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.record(target)
	if rec.state != BreakerClosed {
		b.transition(target, rec, BreakerClosed)
	}
	rec.failureCount = 0
	rec.successCount = 0
	rec.halfOpenCalls = 0
}

// Reset removes a target's record entirely.
func (b *Breaker) Reset(target string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.targets, target)
}

// ResetAll removes every record.
func (b *Breaker) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets = make(map[string]*breakerRecord)
}

// BreakerSnapshot is a point-in-time view of one target's record.
type BreakerSnapshot struct {
	Target       string
	State        BreakerState
	FailureCount int
	SuccessCount int
	OpenedAt     time.Time
	LastFailure  time.Time
	LastError    error
}

// Snapshot returns the record for one target.
func (b *Breaker) Snapshot(target string) (BreakerSnapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.targets[target]
	if !ok {
		return BreakerSnapshot{}, false
	}
	return BreakerSnapshot{
		Target:       target,
		State:        rec.state,
		FailureCount: rec.failureCount,
		SuccessCount: rec.successCount,
		OpenedAt:     rec.openedAt,
		LastFailure:  rec.lastFailure,
		LastError:    rec.lastFailureErr,
	}, true
}

// Snapshots returns records for every observed target.
func (b *Breaker) Snapshots() []BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]BreakerSnapshot, 0, len(b.targets))
	for target, rec := range b.targets {
		out = append(out, BreakerSnapshot{
			Target:       target,
			State:        rec.state,
			FailureCount: rec.failureCount,
			SuccessCount: rec.successCount,
			OpenedAt:     rec.openedAt,
			LastFailure:  rec.lastFailure,
			LastError:    rec.lastFailureErr,
		})
	}
	return out
}
