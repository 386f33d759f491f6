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

// ArchiveRepository persists per-tenant archive policies and the archive
// records produced when documents are archived.
type ArchiveRepository struct {
	db *sqlx.DB
}

// NewArchiveRepository constructs the repository.
func NewArchiveRepository(db *sqlx.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// UpsertPolicy replaces the tenant's policy wholesale. There are no
// merge semantics: the stored row always mirrors the latest write.
func (r *ArchiveRepository) UpsertPolicy(ctx context.Context, policy *models.ArchivePolicy) error {
	if policy.UpdatedAt.IsZero() {
		policy.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO archive_policies
	(tenant_id, retention_days, compression_enabled, encryption_required, delete_after_archive, archive_format, updated_at)
	VALUES (:tenant_id, :retention_days, :compression_enabled, :encryption_required, :delete_after_archive, :archive_format, :updated_at)
	ON CONFLICT (tenant_id) DO UPDATE SET
		retention_days = EXCLUDED.retention_days,
		compression_enabled = EXCLUDED.compression_enabled,
		encryption_required = EXCLUDED.encryption_required,
		delete_after_archive = EXCLUDED.delete_after_archive,
		archive_format = EXCLUDED.archive_format,
		updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, policy); err != nil {
		return fmt.Errorf("upsert archive policy: %w", err)
	}
	return nil
}

// GetPolicy returns the active policy for the tenant.
func (r *ArchiveRepository) GetPolicy(ctx context.Context, tenantID string) (*models.ArchivePolicy, error) {
	const query = `SELECT tenant_id, retention_days, compression_enabled, encryption_required, delete_after_archive, archive_format, updated_at
	FROM archive_policies WHERE tenant_id = $1`
	var policy models.ArchivePolicy
	if err := r.db.GetContext(ctx, &policy, query, tenantID); err != nil {
		return nil, err
	}
	return &policy, nil
}

// CreateRecord stores a pending archive artifact row.
func (r *ArchiveRepository) CreateRecord(ctx context.Context, record *models.ArchiveRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.Status == "" {
		record.Status = models.ArchiveStatusPending
	}
	const query = `INSERT INTO archive_records
	(id, document_id, tenant_id, format, artifact_ref, status, created_at, completed_at)
	VALUES (:id, :document_id, :tenant_id, :format, :artifact_ref, :status, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create archive record: %w", err)
	}
	return nil
}

// CompleteRecord marks the artifact as completed or failed.
func (r *ArchiveRepository) CompleteRecord(ctx context.Context, id, status, artifactRef string, at time.Time) error {
	const query = `UPDATE archive_records SET status = $2, artifact_ref = $3, completed_at = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, artifactRef, at)
	if err != nil {
		return fmt.Errorf("complete archive record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check archive record rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GetRecord loads one archive record.
func (r *ArchiveRepository) GetRecord(ctx context.Context, id string) (*models.ArchiveRecord, error) {
	const query = `SELECT id, document_id, tenant_id, format, artifact_ref, status, created_at, completed_at
	FROM archive_records WHERE id = $1`
	var record models.ArchiveRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}
