// Package events publishes grant lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// GrantIssuedEvent is emitted after a grant becomes the document's active grant.
type GrantIssuedEvent struct {
	DocumentID string    `json:"documentId"`
	GrantID    string    `json:"grantId"`
	OwnerID    string    `json:"ownerId"`
	IssuedAt   time.Time `json:"issuedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// DocumentRevokedEvent is emitted once a document's content and metadata are gone.
type DocumentRevokedEvent struct {
	DocumentID string    `json:"documentId"`
	Reason     string    `json:"reason"`
	RevokedAt  time.Time `json:"revokedAt"`
}

// Publisher defines the interface for publishing events
type Publisher interface {
	GrantIssued(ctx context.Context, event GrantIssuedEvent) error
	DocumentRevoked(ctx context.Context, event DocumentRevokedEvent) error
}

// NATSPublisher implements Publisher on a core NATS connection with JSON payloads.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// Connect dials url and returns a publisher plus a function that drains the connection.
func Connect(url string) (*NATSPublisher, func(), error) {
	nc, err := nats.Connect(url, nats.Name("kawach"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats: %w", err)
	}
	return NewPublisher(nc), func() { _ = nc.Drain() }, nil
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, event any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.nc.Publish(subject, data)
}

func (p *NATSPublisher) GrantIssued(ctx context.Context, event GrantIssuedEvent) error {
	return p.publish(ctx, GrantIssued, event)
}

func (p *NATSPublisher) DocumentRevoked(ctx context.Context, event DocumentRevokedEvent) error {
	return p.publish(ctx, DocumentRevoked, event)
}

// Noop discards events. Used when no NATS URL is configured.
type Noop struct{}

func (Noop) GrantIssued(context.Context, GrantIssuedEvent) error         { return nil }
func (Noop) DocumentRevoked(context.Context, DocumentRevokedEvent) error { return nil }
