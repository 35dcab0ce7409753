// Package sim abstracts the time and randomness that drive ChatHub's
// simulated network. Stores take these as constructor options so tests can
// swap in the deterministic fakes from fake.go.
package sim

import (
	"context"
	"math/rand/v2"
	"time"
)

// Clock reports the current time and creates tickers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Random is the randomness source used for probabilities and picks.
type Random interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// IntN returns a value in [0, n). n must be > 0.
	IntN(n int) int
}

// Delayer suspends the caller to model network latency. Implementations
// return ctx.Err() when the context ends first.
type Delayer interface {
	Delay(ctx context.Context, min, max time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// SystemRandom uses the runtime's shared generator, which is safe for
// concurrent use.
type SystemRandom struct{}

func (SystemRandom) Float64() float64 { return rand.Float64() }
func (SystemRandom) IntN(n int) int   { return rand.IntN(n) }

// Latency waits a uniformly random duration between min and max inclusive,
// at millisecond resolution.
type Latency struct {
	Random Random
}

// NewLatency returns a Latency backed by r, or SystemRandom when r is nil.
func NewLatency(r Random) *Latency {
	if r == nil {
		r = SystemRandom{}
	}
	return &Latency{Random: r}
}

// Delay implements Delayer.
func (l *Latency) Delay(ctx context.Context, min, max time.Duration) error {
	d := Pick(l.Random, min, max)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Pick chooses a duration in [min, max] at millisecond resolution.
func Pick(r Random, min, max time.Duration) time.Duration {
	if max < min {
		min, max = max, min
	}
	lo := min.Milliseconds()
	span := max.Milliseconds() - lo + 1
	if span <= 1 {
		return min
	}
	return time.Duration(lo+int64(r.IntN(int(span)))) * time.Millisecond
}
