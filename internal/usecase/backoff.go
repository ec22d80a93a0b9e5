package usecase

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/trebuchet-org/treb-deploy/internal/domain/config"
)

// BackoffPolicy describes a capped exponential delay sequence without jitter
type BackoffPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxElapsed bounds the total time since the first attempt; zero means unbounded
	MaxElapsed time.Duration
	Multiplier float64
}

// DeployBackoff returns the retry policy for deployment attempts
func DeployBackoff(cfg config.DeployConfig) BackoffPolicy {
	return BackoffPolicy{
		InitialDelay: cfg.BackoffBase,
		MaxDelay:     cfg.BackoffMax,
		Multiplier:   2,
	}
}

// VerifyBackoff returns the reschedule policy for verification attempts
func VerifyBackoff(cfg config.VerifyConfig) BackoffPolicy {
	return BackoffPolicy{
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		MaxElapsed:   cfg.MaxElapsed,
		Multiplier:   2,
	}
}

// New starts a fresh delay sequence measured against clock.
// NextBackOff returns backoff.Stop once MaxElapsed would be exceeded.
func (p BackoffPolicy) New(clock backoff.Clock) *backoff.ExponentialBackOff {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 2
	}
	maxDelay := p.MaxDelay
	if maxDelay < p.InitialDelay {
		maxDelay = p.InitialDelay
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          multiplier,
		MaxInterval:         maxDelay,
		MaxElapsedTime:      p.MaxElapsed,
		Stop:                backoff.Stop,
		Clock:               clock,
	}
	b.Reset()
	return b
}

// Preview returns the first n delays of the sequence, ignoring MaxElapsed
func (p BackoffPolicy) Preview(n int) []time.Duration {
	unbounded := p
	unbounded.MaxElapsed = 0
	b := unbounded.New(backoff.SystemClock)

	delays := make([]time.Duration, 0, n)
	for range n {
		delays = append(delays, b.NextBackOff())
	}
	return delays
}
