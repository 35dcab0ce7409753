package sim

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a settable clock. When Step is non-zero every call to Now
// advances the clock by Step after reading it, which gives strictly
// increasing timestamps without sleeping.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	Step    time.Duration
	tickers []*ManualTicker
}

// NewFakeClock starts a fake clock at now.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.Step)
	return now
}

// Set moves the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// NewTicker returns a ManualTicker that only fires when Fire is called.
func (c *FakeClock) NewTicker(d time.Duration) Ticker {
	t := &ManualTicker{Interval: d, ch: make(chan time.Time)}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Tickers returns every ticker created so far, stopped or not.
func (c *FakeClock) Tickers() []*ManualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ManualTicker, len(c.tickers))
	copy(out, c.tickers)
	return out
}

// Active returns the tickers that have not been stopped.
func (c *FakeClock) Active() []*ManualTicker {
	var out []*ManualTicker
	for _, t := range c.Tickers() {
		if !t.Stopped() {
			out = append(out, t)
		}
	}
	return out
}

// ManualTicker fires only when told to.
type ManualTicker struct {
	Interval time.Duration

	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }

func (t *ManualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Stopped reports whether Stop has been called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire delivers one tick and blocks until the receiver takes it or the
// timeout passes. It reports whether the tick was delivered.
func (t *ManualTicker) Fire(at time.Time, timeout time.Duration) bool {
	if t.Stopped() {
		return false
	}
	select {
	case t.ch <- at:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ScriptedRandom replays fixed values. Floats and Ints cycle independently;
// an empty script yields 0.
type ScriptedRandom struct {
	mu     sync.Mutex
	Floats []float64
	Ints   []int
	fi, ii int
}

func (r *ScriptedRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Floats) == 0 {
		return 0
	}
	v := r.Floats[r.fi%len(r.Floats)]
	r.fi++
	return v
}

func (r *ScriptedRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Ints) == 0 || n <= 0 {
		return 0
	}
	v := r.Ints[r.ii%len(r.Ints)]
	r.ii++
	if v < 0 {
		v = -v
	}
	return v % n
}

// NoDelay returns immediately unless ctx is already done.
type NoDelay struct{}

func (NoDelay) Delay(ctx context.Context, _, _ time.Duration) error {
	return ctx.Err()
}

// FailDelay always fails with Err, modelling a broken transfer.
type FailDelay struct {
	Err error
}

func (f FailDelay) Delay(context.Context, time.Duration, time.Duration) error {
	return f.Err
}

// GateDelay parks every caller until Release is called or ctx ends. Entered
// receives one value per caller that has started waiting.
type GateDelay struct {
	once    sync.Once
	gate    chan struct{}
	Entered chan struct{}
}

// NewGateDelay builds a closed-until-released delayer.
func NewGateDelay() *GateDelay {
	return &GateDelay{gate: make(chan struct{}), Entered: make(chan struct{}, 16)}
}

func (g *GateDelay) Delay(ctx context.Context, _, _ time.Duration) error {
	select {
	case g.Entered <- struct{}{}:
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.gate:
		return nil
	}
}

// Release lets every current and future caller through.
func (g *GateDelay) Release() {
	g.once.Do(func() { close(g.gate) })
}
