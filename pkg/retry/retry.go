// Package retry provides an explicit retry policy with exponential backoff.
// The policy only decides whether and when to try again; callers own the
// operation being retried and decide which failures are retryable.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds the number of attempts for an operation and spaces them
// with exponential backoff. MaxAttempts counts the first attempt, so a
// policy with MaxAttempts of 1 never retries.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	Jitter          float64
}

// NewPolicy builds a Policy from a finalized Config.
func NewPolicy(cfg *Config) Policy {
	return Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialIntervalDuration(),
		Multiplier:      cfg.Multiplier,
		MaxInterval:     cfg.MaxIntervalDuration(),
		Jitter:          cfg.Jitter,
	}
}

// None returns a policy that performs a single attempt.
func None() Policy {
	return Policy{MaxAttempts: 1}
}

// Schedule tracks the attempts made under a policy.
type Schedule struct {
	policy  Policy
	attempt int
	backoff *backoff.ExponentialBackOff
}

// Start begins a new schedule. The first attempt is considered in progress.
func (p Policy) Start() *Schedule {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.RandomizationFactor = p.Jitter
	b.MaxElapsedTime = 0
	b.Reset()

	return &Schedule{
		policy:  p,
		attempt: 1,
		backoff: b,
	}
}

// Attempt returns the 1-based number of the current attempt.
func (s *Schedule) Attempt() int {
	return s.attempt
}

// Next reports whether another attempt is permitted and, if so, returns
// the delay to wait before making it.
func (s *Schedule) Next() (time.Duration, bool) {
	if s.attempt >= max(s.policy.MaxAttempts, 1) {
		return 0, false
	}

	delay := s.backoff.NextBackOff()
	if delay == backoff.Stop {
		return 0, false
	}

	s.attempt++
	return delay, true
}

// Wait blocks for delay or until ctx is done, returning ctx.Err() in the
// latter case.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
