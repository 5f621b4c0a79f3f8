package connection

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"
)

// Defaults for session re-login.
const (
	InitialBackoff    = 1 * time.Second
	MaxBackoff        = 60 * time.Second
	BackoffMultiplier = 2.0

	// JitterFactor is the largest jitter, as a fraction of the base delay.
	JitterFactor = 0.25
)

// ErrExhausted is returned by Wait once MaxAttempts delays were handed out.
var ErrExhausted = errors.New("retries exhausted")

// BackoffConfig parameterizes a Backoff. Zero fields take the re-login
// defaults. A negative Jitter disables jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64

	// MaxAttempts bounds the number of consecutive failures. Zero is unbounded.
	MaxAttempts int
}

// DefaultBackoffConfig is used for session re-login: start at a second,
// never give up.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    InitialBackoff,
		Max:        MaxBackoff,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFactor,
	}
}

// PollBackoffConfig is used by frame polling. Polls run at sub-second
// intervals, so retries start lower and cap earlier.
func PollBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    500 * time.Millisecond,
		Max:        30 * time.Second,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFactor,
	}
}

// Backoff hands out exponentially growing delays with jitter. It counts
// failures since the last Reset. Safe for concurrent use.
type Backoff struct {
	mu       sync.Mutex
	cfg      BackoffConfig
	current  time.Duration
	attempts int
}

// NewBackoff returns a Backoff with DefaultBackoffConfig.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(DefaultBackoffConfig())
}

// NewBackoffWithConfig returns a Backoff for cfg after filling in defaults.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	cfg.Max = max(cfg.Max, cfg.Initial)
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}
	cfg.Jitter = max(cfg.Jitter, 0)
	cfg.MaxAttempts = max(cfg.MaxAttempts, 0)
	return &Backoff{cfg: cfg, current: cfg.Initial}
}

// Next records a failure and returns the delay before the next try.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current
	if b.cfg.Jitter > 0 {
		delay += time.Duration(float64(delay) * b.cfg.Jitter * rand.Float64())
	}
	b.attempts++
	b.current = min(time.Duration(float64(b.current)*b.cfg.Multiplier), b.cfg.Max)
	return delay
}

// Exhausted reports whether MaxAttempts failures were recorded.
func (b *Backoff) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cfg.MaxAttempts > 0 && b.attempts >= b.cfg.MaxAttempts
}

// Wait records a failure and sleeps for the next delay. It returns
// ErrExhausted without sleeping when that failure reaches MaxAttempts, and
// ctx.Err() when ctx ends first.
func (b *Backoff) Wait(ctx context.Context) error {
	delay := b.Next()
	if b.Exhausted() {
		return ErrExhausted
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reset clears the failure count. Call it after a success.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.cfg.Initial
	b.attempts = 0
}

// Attempts returns the failures since the last Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the base delay of the next Next, without jitter.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}
