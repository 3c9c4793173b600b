package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kawach/internal/expiry"
	"kawach/internal/model"
	"kawach/internal/repository"
	"kawach/internal/storage"
)

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents.
type DocumentService interface {
	// Upload uploads the content to object storage, saves metadata to DB, and rolls back storage if DB save fails.
	// - originalFilename is kept as metadata; the object key is a UUID plus the original extension.
	Upload(ctx context.Context, ownerID string, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error)

	// List returns the owner's documents using limit/offset and a total count.
	List(ctx context.Context, ownerID string, limit, offset int) (*DocumentListResult, error)

	// Get returns a single document owned by requesterID.
	Get(ctx context.Context, id, requesterID string) (*model.Document, error)

	// Delete revokes the document on behalf of its owner. Deleting an absent document succeeds.
	Delete(ctx context.Context, id, requesterID string) (*RevocationResult, error)
}

// Countdown tracks the running expiry countdown of each document's grant.
type Countdown interface {
	Start(documentID string, ttl time.Duration) error
	Cancel(documentID string) bool
	Status(documentID string) (expiry.Snapshot, bool)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	revoker   Revoker
	countdown Countdown
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, revoker Revoker, countdown Countdown) DocumentService {
	return &documentService{store: store, repo: repo, revoker: revoker, countdown: countdown}
}

func (s *documentService) Upload(ctx context.Context, ownerID string, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if r == nil {
		return nil, ErrReaderNil
	}
	id := uuid.New().String()
	key := filepath.ToSlash(filepath.Join("documents", id+filepath.Ext(originalFilename)))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
			"owner-id":          ownerID,
		},
	})
	if err != nil {
		return nil, upstream("upload to storage", err)
	}

	doc := &model.Document{
		ID:           id,
		OwnerID:      ownerID,
		OriginalName: filepath.Base(originalFilename),
		ContentType:  contentType,
		Size:         objInfo.Size,
		StoragePath:  objInfo.Key,
		CreatedAt:    time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("%w: db save failed: %v; rollback delete failed: %v", ErrUpstreamUnavailable, err, delErr)
		}
		return nil, upstream("db save failed", err)
	}
	return stored, nil
}

func (s *documentService) List(ctx context.Context, ownerID string, limit, offset int) (*DocumentListResult, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.ListByOwner(ctx, ownerID, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, upstream("list documents", err)
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

func (s *documentService) Get(ctx context.Context, id, requesterID string) (*model.Document, error) {
	return findOwned(ctx, s.repo, id, requesterID)
}

// Delete checks ownership, revokes, and stops the document's countdown once revocation succeeds.
func (s *documentService) Delete(ctx context.Context, id, requesterID string) (*RevocationResult, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Nobody owns an absent document; converge whatever is left.
	case err != nil:
		return nil, upstream("find document", err)
	case !doc.OwnedBy(requesterID):
		return nil, ErrForbidden
	}

	res, err := s.revoker.Revoke(ctx, id, ReasonDeleted)
	if err != nil {
		return nil, err
	}
	if s.countdown != nil {
		s.countdown.Cancel(id)
	}
	return res, nil
}

// findOwned loads a document and checks that requesterID uploaded it.
func findOwned(ctx context.Context, repo repository.DocumentRepository, id, requesterID string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, upstream("find document", err)
	}
	if !doc.OwnedBy(requesterID) {
		return nil, ErrForbidden
	}
	return doc, nil
}
