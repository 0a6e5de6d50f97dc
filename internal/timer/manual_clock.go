package timer

import (
	"sync"
	"time"
)

// ManualClock is a Clock whose tickers only advance when Tick is called.
// It lets session and timer tests simulate time deterministically.
type ManualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

// NewManualClock returns a clock under test control.
func NewManualClock() *ManualClock { return &ManualClock{} }

// NewTicker registers a ticker; the interval is ignored since the test decides
// when units elapse.
func (c *ManualClock) NewTicker(time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick advances every live ticker by one unit. Callers should wait for the
// resulting callbacks to surface (e.g. via session events) before ticking
// again, since an undrained ticker drops the extra tick like time.Ticker does.
func (c *ManualClock) Tick() {
	c.mu.Lock()
	tickers := make([]*manualTicker, len(c.tickers))
	copy(tickers, c.tickers)
	c.mu.Unlock()

	for _, t := range tickers {
		t.deliver()
	}
}

type manualTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *manualTicker) deliver() {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return
	}
	select {
	case t.ch <- time.Now():
	default:
	}
}
