package timer

import (
	"sync"
	"time"
)

// Clock abstracts ticker creation so tests can drive virtual time.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker is the minimal surface of time.Ticker the countdown needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type systemClock struct{}

type systemTicker struct{ t *time.Ticker }

func (systemClock) NewTicker(d time.Duration) Ticker { return &systemTicker{t: time.NewTicker(d)} }

func (s *systemTicker) C() <-chan time.Time { return s.t.C }
func (s *systemTicker) Stop()               { s.t.Stop() }

// SystemClock returns a Clock backed by the wall clock.
func SystemClock() Clock { return systemClock{} }

// Countdown is a cancellable per-question countdown. Start begins a fresh run
// that invokes onTick once per elapsed unit and onExpire when the count hits
// zero. Cancel is idempotent and stops all future callbacks; the stop channel
// is re-checked immediately before every callback so a cancellation issued
// while a tick is pending still suppresses it.
type Countdown struct {
	clock Clock
	unit  time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	running bool
}

// New builds a countdown that counts in units of the given duration.
func New(clock Clock, unit time.Duration) *Countdown {
	return &Countdown{clock: clock, unit: unit}
}

// Start cancels any previous run and begins counting down from units.
// onTick receives the remaining units after each elapsed unit; onExpire fires
// instead of a tick when the count reaches zero.
func (c *Countdown) Start(units int, onTick func(remaining int), onExpire func()) {
	c.mu.Lock()
	if c.running {
		close(c.stop)
	}
	stop := make(chan struct{})
	c.stop = stop
	c.running = true
	c.mu.Unlock()

	if units <= 0 {
		go func() {
			if !cancelled(stop) {
				onExpire()
			}
		}()
		return
	}

	// The ticker is created before Start returns so no tick produced after
	// this call can be missed.
	ticker := c.clock.NewTicker(c.unit)
	go c.run(stop, ticker, units, onTick, onExpire)
}

// Cancel stops the active run, if any. Safe to call repeatedly.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		close(c.stop)
		c.running = false
	}
}

func (c *Countdown) run(stop chan struct{}, ticker Ticker, units int, onTick func(int), onExpire func()) {
	defer ticker.Stop()

	remaining := units
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if cancelled(stop) {
				return
			}
			remaining--
			if remaining > 0 {
				onTick(remaining)
				continue
			}
			onExpire()
			return
		}
	}
}

func cancelled(stop chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
