package postgres

import (
	"context"
	"database/sql"

	"kawach/internal/model"
	"kawach/internal/repository"
)

// GrantPostgres stores access grants in the access_grants table.
type GrantPostgres struct {
	db *sql.DB
}

// NewGrantPostgres creates a new GrantPostgres repository.
func NewGrantPostgres(db *sql.DB) *GrantPostgres {
	return &GrantPostgres{db: db}
}

var _ repository.GrantRepository = (*GrantPostgres)(nil)

const grantColumns = `id, document_id, artifact_ref, status, issued_at, expires_at`

func scanGrant(row rowScanner) (*model.AccessGrant, error) {
	var (
		g      model.AccessGrant
		status string
	)
	if err := row.Scan(
		&g.ID,
		&g.DocumentID,
		&g.ArtifactRef,
		&status,
		&g.IssuedAt,
		&g.ExpiresAt,
	); err != nil {
		return nil, err
	}
	g.Status = model.GrantStatus(status)
	return &g, nil
}

// Upsert inserts the grant or replaces the document's existing one.
// document_id is unique, so two concurrent issuers cannot both leave a live row.
func (r *GrantPostgres) Upsert(ctx context.Context, g *model.AccessGrant) (*model.AccessGrant, error) {
	const q = `
		INSERT INTO access_grants (` + grantColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id) DO UPDATE SET
			id           = EXCLUDED.id,
			artifact_ref = EXCLUDED.artifact_ref,
			status       = EXCLUDED.status,
			issued_at    = EXCLUDED.issued_at,
			expires_at   = EXCLUDED.expires_at
		RETURNING ` + grantColumns
	row := r.db.QueryRowContext(ctx, q,
		g.ID,
		g.DocumentID,
		g.ArtifactRef,
		string(g.Status),
		g.IssuedAt,
		g.ExpiresAt,
	)
	return scanGrant(row)
}

// FindByDocumentID returns the document's grant. A missing row surfaces as sql.ErrNoRows.
func (r *GrantPostgres) FindByDocumentID(ctx context.Context, documentID string) (*model.AccessGrant, error) {
	const q = `SELECT ` + grantColumns + ` FROM access_grants WHERE document_id = $1`
	return scanGrant(r.db.QueryRowContext(ctx, q, documentID))
}

// ListActive returns all ACTIVE grants ordered by issue time.
func (r *GrantPostgres) ListActive(ctx context.Context) ([]model.AccessGrant, error) {
	const q = `
		SELECT ` + grantColumns + `
		FROM access_grants
		WHERE status = $1
		ORDER BY issued_at ASC
	`
	rows, err := r.db.QueryContext(ctx, q, string(model.GrantActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AccessGrant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// Delete removes the grant for a document. Missing rows are not an error.
func (r *GrantPostgres) Delete(ctx context.Context, documentID string) error {
	const q = `DELETE FROM access_grants WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, q, documentID)
	return err
}
