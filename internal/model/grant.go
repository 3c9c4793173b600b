package model

import "time"

// GrantStatus is the lifecycle state of an AccessGrant. REVOKED is terminal.
type GrantStatus string

const (
	GrantActive  GrantStatus = "ACTIVE"
	GrantRevoked GrantStatus = "REVOKED"
)

// AccessGrant binds a document to its current scannable artifact.
// There is at most one grant per document; issuing a new one replaces the old record.
type AccessGrant struct {
	ID          string      `json:"id"`
	DocumentID  string      `json:"document_id"`
	ArtifactRef string      `json:"artifact_ref"`
	Status      GrantStatus `json:"status"`
	IssuedAt    time.Time   `json:"issued_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Active reports whether the grant is ACTIVE and its window has not elapsed at now.
func (g *AccessGrant) Active(now time.Time) bool {
	return g != nil && g.Status == GrantActive && now.Before(g.ExpiresAt)
}
