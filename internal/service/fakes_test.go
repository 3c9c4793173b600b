package service

import (
	"context"
	"sync"
	"time"

	"kawach/internal/events"
	"kawach/internal/expiry"
)

type fakeCountdown struct {
	mu        sync.Mutex
	started   map[string]time.Duration
	cancelled []string
	snapshots map[string]expiry.Snapshot
	startErr  error
}

func newFakeCountdown() *fakeCountdown {
	return &fakeCountdown{started: map[string]time.Duration{}, snapshots: map[string]expiry.Snapshot{}}
}

func (f *fakeCountdown) Start(documentID string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started[documentID] = ttl
	return nil
}

func (f *fakeCountdown) Cancel(documentID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, documentID)
	_, ok := f.started[documentID]
	delete(f.started, documentID)
	return ok
}

func (f *fakeCountdown) Status(documentID string) (expiry.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[documentID]
	return s, ok
}

type fakeRevoker struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeRevoker) Revoke(_ context.Context, documentID, reason string) (*RevocationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, documentID+":"+reason)
	if f.err != nil {
		return nil, f.err
	}
	return &RevocationResult{DocumentID: documentID, RevokedAt: time.Now().UTC()}, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	issued  []events.GrantIssuedEvent
	revoked []events.DocumentRevokedEvent
	err     error
}

func (p *recordingPublisher) GrantIssued(_ context.Context, e events.GrantIssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued = append(p.issued, e)
	return p.err
}

func (p *recordingPublisher) DocumentRevoked(_ context.Context, e events.DocumentRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, e)
	return p.err
}
