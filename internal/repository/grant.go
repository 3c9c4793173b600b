package repository

import (
	"context"

	"kawach/internal/model"
)

// GrantRepository is the access artifact store. It keeps at most one grant per document.
type GrantRepository interface {
	// Upsert writes the grant, replacing any prior grant for the same document in one statement.
	Upsert(ctx context.Context, g *model.AccessGrant) (*model.AccessGrant, error)

	// FindByDocumentID returns the document's current grant, or sql.ErrNoRows.
	FindByDocumentID(ctx context.Context, documentID string) (*model.AccessGrant, error)

	// ListActive returns every ACTIVE grant, oldest first.
	ListActive(ctx context.Context) ([]model.AccessGrant, error)

	// Delete removes the document's grant. It returns nil if no grant existed.
	Delete(ctx context.Context, documentID string) error
}
