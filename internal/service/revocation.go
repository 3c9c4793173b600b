package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"kawach/internal/events"
	"kawach/internal/repository"
	"kawach/internal/storage"
)

var tracer = otel.Tracer("kawach/internal/service")

// Revocation reasons.
const (
	ReasonExpired = "expired"
	ReasonDeleted = "deleted"
)

// revokeTimeout bounds one shared revocation once it is detached from callers.
const revokeTimeout = 30 * time.Second

// RevocationResult describes a completed revocation.
type RevocationResult struct {
	DocumentID  string    `json:"documentId"`
	AlreadyGone bool      `json:"alreadyGone"`
	RevokedAt   time.Time `json:"revokedAt"`
}

// Revoker ensures a document and its grant are no longer accessible.
// Revoking an absent document succeeds.
type Revoker interface {
	Revoke(ctx context.Context, documentID, reason string) (*RevocationResult, error)
}

// RevocationDeps are the collaborators of the revocation executor.
type RevocationDeps struct {
	Store     storage.Storage
	Documents repository.DocumentRepository
	Grants    repository.GrantRepository
	Events    events.Publisher
	Metrics   *Metrics
	Logger    *slog.Logger
}

type revocationExecutor struct {
	store  storage.Storage
	docs   repository.DocumentRepository
	grants repository.GrantRepository
	events events.Publisher
	m      *Metrics
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewRevocationExecutor(d RevocationDeps) Revoker {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &revocationExecutor{
		store:  d.Store,
		docs:   d.Documents,
		grants: d.Grants,
		events: d.Events,
		m:      d.Metrics,
		logger: d.Logger.With("component", "revocation"),
		now:    time.Now,
	}
}

// Revoke deletes the stored object, then the document record, then the grant record.
// Concurrent calls for the same document share one execution.
func (r *revocationExecutor) Revoke(ctx context.Context, documentID, reason string) (*RevocationResult, error) {
	if documentID == "" {
		return nil, ErrIDRequired
	}
	ch := r.group.DoChan(documentID, func() (any, error) {
		// Shared by every joined caller, so it outlives any single caller's ctx.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
		defer cancel()
		return r.revoke(ctx, documentID, reason)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		if out.Err != nil {
			return nil, out.Err
		}
		res := *out.Val.(*RevocationResult)
		return &res, nil
	}
}

func (r *revocationExecutor) revoke(ctx context.Context, documentID, reason string) (_ *RevocationResult, err error) {
	ctx, span := tracer.Start(ctx, "revocation.revoke", trace.WithAttributes(
		attribute.String("document.id", documentID),
		attribute.String("revocation.reason", reason),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := r.logger.With("document_id", documentID, "reason", reason)

	doc, err := r.docs.FindByID(ctx, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		if err := r.grants.Delete(ctx, documentID); err != nil {
			r.m.Revocation(RevocationFailed)
			log.Error("grant delete failed", "event", "revocation_failed", "step", "grant", "error", err)
			return nil, fmt.Errorf("%w: delete grant: %w", ErrRevocationFailed, err)
		}
		r.m.Revocation(RevocationAlreadyGone)
		log.Info("document already gone", "event", "revocation_noop")
		return &RevocationResult{DocumentID: documentID, AlreadyGone: true, RevokedAt: r.now().UTC()}, nil
	}
	if err != nil {
		r.m.Revocation(RevocationUpstream)
		return nil, upstream("find document", err)
	}

	grant, err := r.grants.FindByDocumentID(ctx, documentID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		r.m.Revocation(RevocationUpstream)
		return nil, upstream("find grant", err)
	}

	// Object first: metadata must never be dropped while the blob is still retrievable.
	if err := r.store.Delete(ctx, doc.StoragePath); err != nil {
		r.m.Revocation(RevocationFailed)
		log.Error("object delete failed, metadata left untouched", "event", "revocation_failed",
			"step", "object", "storage_path", doc.StoragePath, "error", err)
		return nil, fmt.Errorf("%w: delete object: %w", ErrRevocationFailed, err)
	}
	if grant != nil && grant.ArtifactRef != "" {
		if err := r.store.Delete(ctx, grant.ArtifactRef); err != nil {
			log.Warn("artifact delete failed", "artifact_ref", grant.ArtifactRef, "error", err)
		}
	}

	if err := r.docs.Delete(ctx, documentID); err != nil {
		r.m.Revocation(RevocationFailed)
		log.Error("document record delete failed after object removal", "event", "revocation_failed",
			"step", "document", "error", err)
		return nil, fmt.Errorf("%w: delete document record: %w", ErrRevocationFailed, err)
	}
	if err := r.grants.Delete(ctx, documentID); err != nil {
		r.m.Revocation(RevocationFailed)
		log.Error("grant record delete failed after object removal", "event", "revocation_failed",
			"step", "grant", "error", err)
		return nil, fmt.Errorf("%w: delete grant: %w", ErrRevocationFailed, err)
	}

	res := &RevocationResult{DocumentID: documentID, RevokedAt: r.now().UTC()}
	if err := r.events.DocumentRevoked(ctx, events.DocumentRevokedEvent{
		DocumentID: documentID,
		Reason:     reason,
		RevokedAt:  res.RevokedAt,
	}); err != nil {
		log.Warn("publish document.revoked failed", "error", err)
	}
	r.m.Revocation(RevocationRevoked)
	log.Info("document revoked", "event", "document_revoked")
	return res, nil
}
