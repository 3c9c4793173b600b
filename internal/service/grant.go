package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kawach/internal/encoder"
	"kawach/internal/events"
	"kawach/internal/expiry"
	"kawach/internal/model"
	"kawach/internal/repository"
	"kawach/internal/storage"
)

// TokenSigner binds a retrieval token to a document, a grant and an expiry.
type TokenSigner interface {
	GenerateToken(documentID, grantID string, expiresAt time.Time) string
	VerifyToken(token string) (documentID, grantID string, err error)
}

// GrantResult is returned to the owner when a grant is issued.
type GrantResult struct {
	GrantID        string    `json:"grantId"`
	DocumentID     string    `json:"documentId"`
	ArtifactRef    string    `json:"artifactRef"`
	RetrievalRoute string    `json:"retrievalRoute"`
	QRCode         string    `json:"qrCode"`
	IssuedAt       time.Time `json:"issuedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// GrantStatusResult pairs the stored grant with its countdown.
type GrantStatusResult struct {
	Grant     model.AccessGrant `json:"grant"`
	Countdown expiry.Snapshot   `json:"countdown"`
}

// Content is an open document body. Callers must close Body.
type Content struct {
	Document *model.Document
	Body     io.ReadCloser
	Info     storage.ObjectInfo
}

// GrantService issues grants and resolves the retrieval routes they encode.
type GrantService interface {
	// RequestGrant issues a fresh grant for the owner's document, replacing any prior one.
	RequestGrant(ctx context.Context, documentID, requesterID string) (*GrantResult, error)

	// Status returns the owner's current grant and the state of its countdown.
	Status(ctx context.Context, documentID, requesterID string) (*GrantStatusResult, error)

	// Artifact opens the PNG image of the owner's current grant.
	Artifact(ctx context.Context, documentID, requesterID string) (io.ReadCloser, storage.ObjectInfo, error)

	// Resolve returns the document a retrieval token grants access to.
	// Invalid, superseded and expired tokens all resolve to ErrNotFound.
	Resolve(ctx context.Context, documentID, token string) (*model.Document, error)

	// Retrieve resolves the token and opens the document content.
	Retrieve(ctx context.Context, documentID, token string) (*Content, error)

	// ResumeCountdowns restarts countdowns for every ACTIVE grant and returns how many were resumed.
	ResumeCountdowns(ctx context.Context) (int, error)
}

// GrantDeps are the collaborators of the grant service.
type GrantDeps struct {
	Documents repository.DocumentRepository
	Grants    repository.GrantRepository
	Store     storage.Storage
	Encoder   encoder.Encoder
	Signer    TokenSigner
	Countdown Countdown
	Events    events.Publisher
	Metrics   *Metrics
	Logger    *slog.Logger

	// PublicBaseURL is the origin of retrieval routes, without a trailing slash.
	PublicBaseURL string
	TTL           time.Duration
}

type grantService struct {
	docs      repository.DocumentRepository
	grants    repository.GrantRepository
	store     storage.Storage
	enc       encoder.Encoder
	signer    TokenSigner
	countdown Countdown
	events    events.Publisher
	m         *Metrics
	logger    *slog.Logger
	baseURL   string
	ttl       time.Duration
	now       func() time.Time
}

func NewGrantService(d GrantDeps) GrantService {
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.TTL <= 0 {
		d.TTL = 40 * time.Second
	}
	return &grantService{
		docs:      d.Documents,
		grants:    d.Grants,
		store:     d.Store,
		enc:       d.Encoder,
		signer:    d.Signer,
		countdown: d.Countdown,
		events:    d.Events,
		m:         d.Metrics,
		logger:    d.Logger.With("component", "grant"),
		baseURL:   d.PublicBaseURL,
		ttl:       d.TTL,
		now:       time.Now,
	}
}

// ArtifactKey is the object key of a grant's image.
func ArtifactKey(documentID, grantID string) string {
	return path.Join("artifacts", documentID, grantID+".png")
}

// RetrievalRoute builds the URL encoded into an artifact.
func RetrievalRoute(baseURL, documentID, token string) string {
	return baseURL + "/retrieve/" + url.PathEscape(documentID) + "?token=" + url.QueryEscape(token)
}

func (s *grantService) RequestGrant(ctx context.Context, documentID, requesterID string) (_ *GrantResult, err error) {
	ctx, span := tracer.Start(ctx, "grant.request", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	doc, err := findOwned(ctx, s.docs, documentID, requesterID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("document_id", doc.ID)
	issuedAt := s.now().UTC()
	g := &model.AccessGrant{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Status:     model.GrantActive,
		IssuedAt:   issuedAt,
		ExpiresAt:  issuedAt.Add(s.ttl),
	}
	g.ArtifactRef = ArtifactKey(doc.ID, g.ID)
	route := RetrievalRoute(s.baseURL, doc.ID, s.signer.GenerateToken(doc.ID, g.ID, g.ExpiresAt))

	img, err := s.enc.Encode(route)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	prior, err := s.grants.FindByDocumentID(ctx, doc.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, upstream("find prior grant", err)
	}

	if _, err := s.store.Put(ctx, g.ArtifactRef, bytes.NewReader(img.PNG), storage.PutObjectOptions{
		Size:        int64(len(img.PNG)),
		ContentType: img.ContentType,
		Metadata:    map[string]string{"document-id": doc.ID, "grant-id": g.ID},
	}); err != nil {
		return nil, upstream("store artifact", err)
	}

	// The prior countdown must not fire against the replacement grant row.
	priorRunning := s.countdown.Cancel(doc.ID)

	stored, err := s.grants.Upsert(ctx, g)
	if err != nil {
		if delErr := s.store.Delete(ctx, g.ArtifactRef); delErr != nil {
			log.Warn("artifact rollback failed", "artifact_ref", g.ArtifactRef, "error", delErr)
		}
		if now := s.now(); priorRunning && prior.Active(now) {
			if err := s.countdown.Start(doc.ID, prior.ExpiresAt.Sub(now)); err != nil {
				log.Error("prior countdown restore failed", "grant_id", prior.ID, "error", err)
			}
		}
		return nil, upstream("save grant", err)
	}

	if prior != nil && prior.ArtifactRef != "" && prior.ArtifactRef != stored.ArtifactRef {
		if err := s.store.Delete(ctx, prior.ArtifactRef); err != nil {
			log.Warn("superseded artifact delete failed", "artifact_ref", prior.ArtifactRef, "error", err)
		}
	}

	if err := s.countdown.Start(doc.ID, s.ttl); err != nil {
		log.Error("countdown start failed", "grant_id", stored.ID, "error", err)
	}

	if err := s.events.GrantIssued(ctx, events.GrantIssuedEvent{
		DocumentID: doc.ID,
		GrantID:    stored.ID,
		OwnerID:    doc.OwnerID,
		IssuedAt:   stored.IssuedAt,
		ExpiresAt:  stored.ExpiresAt,
	}); err != nil {
		log.Warn("publish grant.issued failed", "error", err)
	}
	s.m.GrantIssued()
	log.Info("grant issued", "event", "grant_issued", "grant_id", stored.ID, "expires_at", stored.ExpiresAt)

	return &GrantResult{
		GrantID:        stored.ID,
		DocumentID:     doc.ID,
		ArtifactRef:    stored.ArtifactRef,
		RetrievalRoute: route,
		QRCode:         img.DataURL(),
		IssuedAt:       stored.IssuedAt,
		ExpiresAt:      stored.ExpiresAt,
	}, nil
}

func (s *grantService) currentGrant(ctx context.Context, documentID string) (*model.AccessGrant, error) {
	g, err := s.grants.FindByDocumentID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, upstream("find grant", err)
	}
	return g, nil
}

func (s *grantService) Status(ctx context.Context, documentID, requesterID string) (*GrantStatusResult, error) {
	if _, err := findOwned(ctx, s.docs, documentID, requesterID); err != nil {
		return nil, err
	}
	g, err := s.currentGrant(ctx, documentID)
	if err != nil {
		return nil, err
	}

	snap, ok := s.countdown.Status(documentID)
	if !ok {
		// Not tracked in this process: derive the view from the stored expiry.
		snap = expiry.Snapshot{State: expiry.Expired}
		if remaining := g.ExpiresAt.Sub(s.now()); g.Active(s.now()) && remaining > 0 {
			snap.State = expiry.Running
			snap.RemainingSeconds = int(remaining.Round(time.Second) / time.Second)
		}
		snap.Display = expiry.FormatRemaining(snap.RemainingSeconds)
	}
	return &GrantStatusResult{Grant: *g, Countdown: snap}, nil
}

func (s *grantService) Artifact(ctx context.Context, documentID, requesterID string) (io.ReadCloser, storage.ObjectInfo, error) {
	if _, err := findOwned(ctx, s.docs, documentID, requesterID); err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	g, err := s.currentGrant(ctx, documentID)
	if err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := s.store.Get(ctx, g.ArtifactRef)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, upstream("get artifact", err)
	}
	return rc, info, nil
}

func (s *grantService) Resolve(ctx context.Context, documentID, token string) (_ *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "grant.resolve", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() {
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tokenDoc, grantID, err := s.signer.VerifyToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if tokenDoc != documentID {
		return nil, fmt.Errorf("%w: token issued for another document", ErrNotFound)
	}

	g, err := s.currentGrant(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if g.ID != grantID {
		return nil, fmt.Errorf("%w: grant superseded", ErrNotFound)
	}
	if !g.Active(s.now()) {
		return nil, fmt.Errorf("%w: grant expired", ErrNotFound)
	}

	doc, err := s.docs.FindByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, upstream("find document", err)
	}
	return doc, nil
}

func (s *grantService) Retrieve(ctx context.Context, documentID, token string) (*Content, error) {
	doc, err := s.Resolve(ctx, documentID, token)
	if err != nil {
		return nil, err
	}
	rc, info, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstream("get object", err)
	}
	return &Content{Document: doc, Body: rc, Info: info}, nil
}

func (s *grantService) ResumeCountdowns(ctx context.Context) (int, error) {
	grants, err := s.grants.ListActive(ctx)
	if err != nil {
		return 0, upstream("list active grants", err)
	}
	now := s.now()
	resumed := 0
	for _, g := range grants {
		remaining := g.ExpiresAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		if err := s.countdown.Start(g.DocumentID, remaining); err != nil {
			return resumed, fmt.Errorf("resume countdown for %s: %w", g.DocumentID, err)
		}
		resumed++
	}
	s.logger.Info("countdowns resumed", "event", "countdowns_resumed", "count", resumed)
	return resumed, nil
}
