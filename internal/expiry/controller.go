// Package expiry runs the per-grant countdown that revokes access when the window elapses.
package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State of a countdown. Expired and Cancelled are terminal.
type State int

const (
	Idle State = iota
	Running
	Expired
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	case Expired:
		return "EXPIRED"
	case Cancelled:
		return "CANCELLED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ErrAlreadyStarted is returned when Start is called on a controller that has left Idle.
var ErrAlreadyStarted = errors.New("countdown already started")

// RevokeFunc is invoked once when a countdown expires.
type RevokeFunc func(ctx context.Context) error

// Snapshot is a point-in-time view of a countdown.
type Snapshot struct {
	State            State  `json:"state"`
	RemainingSeconds int    `json:"remainingSeconds"`
	Display          string `json:"display"`
}

type settings struct {
	interval      time.Duration
	newTicker     TickerFunc
	logger        *slog.Logger
	revokeTimeout time.Duration
	observer      func(running int)
}

// Option configures controllers and registries.
type Option func(*settings)

// WithInterval sets the tick interval. Default 1s.
func WithInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTicker replaces the ticker factory, e.g. with (*ManualClock).NewTicker in tests.
func WithTicker(f TickerFunc) Option {
	return func(s *settings) {
		if f != nil {
			s.newTicker = f
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRevokeTimeout bounds each revocation triggered by a registry countdown.
func WithRevokeTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.revokeTimeout = d
		}
	}
}

// WithObserver is called with the number of running countdowns whenever it changes.
func WithObserver(f func(running int)) Option {
	return func(s *settings) { s.observer = f }
}

func newSettings(opts []Option) settings {
	s := settings{
		interval:      time.Second,
		newTicker:     NewRealTicker,
		logger:        slog.Default(),
		revokeTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Controller is one countdown: Idle -> Running -> Expired | Cancelled.
type Controller struct {
	mu        sync.Mutex
	cfg       settings
	revoke    RevokeFunc
	state     State
	remaining int // ticks left
	triggered bool
	err       error

	stop chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

func NewController(revoke RevokeFunc, opts ...Option) *Controller {
	return &Controller{
		cfg:    newSettings(opts),
		revoke: revoke,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start begins counting down d, rounded up to whole ticks. The countdown is
// cancelled without revoking when ctx ends.
func (c *Controller) Start(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = Running
	c.remaining = int((d + c.cfg.interval - 1) / c.cfg.interval)
	if c.remaining < 0 {
		c.remaining = 0
	}
	ticker := c.cfg.newTicker(c.cfg.interval)
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		c.wg.Wait()
		close(c.done)
	}()
	go c.run(ctx, ticker)
	return nil
}

func (c *Controller) run(ctx context.Context, t Ticker) {
	defer c.wg.Done()
	defer t.Stop()

	if c.Remaining() == 0 {
		c.Tick(ctx)
	}
	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			c.Cancel()
			return
		case <-t.C():
			c.Tick(ctx)
		}
	}
}

// Tick advances the countdown by one interval. The tick that reaches zero
// moves the controller to Expired and invokes revoke; every other tick,
// including duplicates arriving after expiry, is a no-op.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining > 0 || c.triggered {
		c.mu.Unlock()
		return
	}
	c.triggered = true
	c.state = Expired
	c.wg.Add(1)
	close(c.stop)
	c.mu.Unlock()

	defer c.wg.Done()
	err := c.revoke(ctx)

	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	if err != nil {
		c.cfg.logger.Warn("countdown revocation failed", "error", err)
	}
}

// Cancel stops a running countdown without revoking. It reports whether the
// controller was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Running {
		return false
	}
	c.state = Cancelled
	close(c.stop)
	return true
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Remaining returns the ticks left.
func (c *Controller) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Controller) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingSecondsLocked()
}

func (c *Controller) remainingSecondsLocked() int {
	return int(time.Duration(c.remaining) * c.cfg.interval / time.Second)
}

// Display renders the remaining time as m:ss.
func (c *Controller) Display() string {
	return FormatRemaining(c.RemainingSeconds())
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	secs := c.remainingSecondsLocked()
	return Snapshot{State: c.state, RemainingSeconds: secs, Display: FormatRemaining(secs)}
}

// Err returns the revocation error recorded on expiry, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed once the countdown has stopped, its ticker is released and
// any triggered revocation has returned. It never closes for an Idle controller.
func (c *Controller) Done() <-chan struct{} { return c.done }

// FormatRemaining renders seconds as m:ss, e.g. 40 -> "0:40", 75 -> "1:15".
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
