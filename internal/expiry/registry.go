package expiry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRegistryClosed is returned by Start after Shutdown.
var ErrRegistryClosed = errors.New("countdown registry closed")

// DocumentRevoker revokes access to a document once its countdown expires.
type DocumentRevoker func(ctx context.Context, documentID string) error

// Registry owns at most one running countdown per document.
type Registry struct {
	mu          sync.Mutex
	cfg         settings
	opts        []Option
	revoke      DocumentRevoker
	ctx         context.Context
	cancel      context.CancelFunc
	closed      bool
	controllers map[string]*Controller
}

func NewRegistry(revoke DocumentRevoker, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:         newSettings(opts),
		opts:        opts,
		revoke:      revoke,
		ctx:         ctx,
		cancel:      cancel,
		controllers: make(map[string]*Controller),
	}
}

// Start replaces any running countdown for documentID with a fresh one of ttl.
func (r *Registry) Start(documentID string, ttl time.Duration) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	if old, ok := r.controllers[documentID]; ok {
		old.Cancel()
	}

	log := r.cfg.logger.With("document_id", documentID)
	c := NewController(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.revokeTimeout)
		defer cancel()
		log.Info("countdown expired, revoking", "event", "countdown_expired")
		return r.revoke(ctx, documentID)
	}, append(append([]Option(nil), r.opts...), WithLogger(log))...)

	if err := c.Start(r.ctx, ttl); err != nil {
		r.mu.Unlock()
		return err
	}
	r.controllers[documentID] = c
	r.notifyLocked()
	r.mu.Unlock()

	go r.reap(documentID, c)
	return nil
}

func (r *Registry) reap(documentID string, c *Controller) {
	<-c.Done()
	r.mu.Lock()
	if r.controllers[documentID] == c {
		delete(r.controllers, documentID)
		r.notifyLocked()
	}
	r.mu.Unlock()
}

func (r *Registry) notifyLocked() {
	if r.cfg.observer != nil {
		r.cfg.observer(len(r.controllers))
	}
}

// Cancel stops the running countdown for documentID, if any.
func (r *Registry) Cancel(documentID string) bool {
	r.mu.Lock()
	c, ok := r.controllers[documentID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return c.Cancel()
}

// Status reports the countdown for documentID. ok is false when none is tracked.
func (r *Registry) Status(documentID string) (Snapshot, bool) {
	r.mu.Lock()
	c, ok := r.controllers[documentID]
	r.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return c.Snapshot(), true
}

// Running returns the number of tracked countdowns.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// Shutdown cancels every countdown and waits for their tickers to be released.
// Revocations already in flight are allowed to finish.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	pending := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		pending = append(pending, c)
	}
	r.mu.Unlock()

	r.cancel()
	for _, c := range pending {
		select {
		case <-c.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
