package repository

import (
	"context"

	"kawach/internal/model"
)

// DocumentRepository is the document directory: persistence for document records only.
// No business logic here: strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// ListByOwner returns a page of the owner's documents and the owner's total count.
	ListByOwner(ctx context.Context, ownerID string, pq PageQuery) (*PageResult[model.Document], error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
