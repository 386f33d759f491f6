package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkivet/document-api/internal/models"
)

// SignatureRepository persists signature request state.
type SignatureRepository struct {
	db *sqlx.DB
}

// NewSignatureRepository constructs the repository.
func NewSignatureRepository(db *sqlx.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// Create stores a new signature request.
func (r *SignatureRepository) Create(ctx context.Context, req *models.SignatureRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.SignatureStatusPending
	}
	const query = `INSERT INTO signature_requests
	(id, document_id, tenant_id, provider, level, provider_url, status, signers, requested_by, created_at, completed_at)
	VALUES (:id, :document_id, :tenant_id, :provider, :level, :provider_url, :status, :signers, :requested_by, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create signature request: %w", err)
	}
	return nil
}

// GetByID loads a signature request scoped to the tenant.
func (r *SignatureRepository) GetByID(ctx context.Context, tenantID, id string) (*models.SignatureRequest, error) {
	const query = `SELECT id, document_id, tenant_id, provider, level, provider_url, status, signers, requested_by, created_at, completed_at
	FROM signature_requests WHERE id = $1 AND tenant_id = $2`
	var req models.SignatureRequest
	if err := r.db.GetContext(ctx, &req, query, id, tenantID); err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus transitions the request state.
func (r *SignatureRepository) UpdateStatus(ctx context.Context, id, status string, completedAt *time.Time) error {
	const query = `UPDATE signature_requests SET status = $2, completed_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, completedAt)
	if err != nil {
		return fmt.Errorf("update signature status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check signature rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
