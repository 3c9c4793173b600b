package expiry

import (
	"sync"
	"time"
)

// Ticker delivers countdown ticks. Stop must release the underlying timer.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a ticker firing every d.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// ManualTicker fires only when told to. Each Fire is a hand-off to the receiving loop.
type ManualTicker struct {
	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() { m.stopOnce.Do(func() { close(m.stopped) }) }

// Fire delivers one tick. It returns false if the ticker was stopped before the tick was taken.
func (m *ManualTicker) Fire() bool {
	select {
	case <-m.stopped:
		return false
	default:
	}
	select {
	case m.ch <- time.Now():
		return true
	case <-m.stopped:
		return false
	}
}

// Stopped reports whether Stop has been called.
func (m *ManualTicker) Stopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

// ManualClock hands out ManualTickers and advances all of them together.
type ManualClock struct {
	mu      sync.Mutex
	tickers []*ManualTicker
}

func (c *ManualClock) NewTicker(time.Duration) Ticker {
	t := NewManualTicker()
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Advance fires n ticks on every ticker that is still running.
func (c *ManualClock) Advance(n int) {
	for i := 0; i < n; i++ {
		c.mu.Lock()
		live := make([]*ManualTicker, 0, len(c.tickers))
		for _, t := range c.tickers {
			if !t.Stopped() {
				live = append(live, t)
			}
		}
		c.mu.Unlock()
		for _, t := range live {
			t.Fire()
		}
	}
}

// Tickers returns every ticker created so far.
func (c *ManualClock) Tickers() []*ManualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ManualTicker(nil), c.tickers...)
}
