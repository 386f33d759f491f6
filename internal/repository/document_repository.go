package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkivet/document-api/internal/models"
)

const documentColumns = `id, filename, mime_type, size_bytes, checksum, locator, uploaded_at, uploaded_by,
       tenant_id, classification, status, current_version, tags, custom_fields, archived_at`

// DocumentRepository handles document metadata and version persistence.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create stores metadata for a newly uploaded document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.DocumentMetadata) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	if doc.Status == "" {
		doc.Status = models.DocumentStatusActive
	}
	const query = `INSERT INTO documents
	(id, filename, mime_type, size_bytes, checksum, locator, uploaded_at, uploaded_by, tenant_id, classification, status, current_version, tags, custom_fields, archived_at)
	VALUES (:id, :filename, :mime_type, :size_bytes, :checksum, :locator, :uploaded_at, :uploaded_by, :tenant_id, :classification, :status, :current_version, :tags, :custom_fields, :archived_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document metadata: %w", err)
	}
	return nil
}

// GetByID retrieves one document scoped to the tenant. Cross-tenant ids
// behave exactly like missing rows.
func (r *DocumentRepository) GetByID(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND tenant_id = $2`
	var doc models.DocumentMetadata
	if err := r.db.GetContext(ctx, &doc, query, id, tenantID); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents applying tenant scoping and optional filters.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentMetadata, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + documentColumns + ` FROM documents`)
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 4)

	args = append(args, filter.TenantID)
	conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", len(args)))

	if filter.Classification != "" {
		args = append(args, filter.Classification)
		conditions = append(conditions, fmt.Sprintf("classification = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UploadedBy != "" {
		args = append(args, filter.UploadedBy)
		conditions = append(conditions, fmt.Sprintf("uploaded_by = $%d", len(args)))
	}

	builder.WriteString(" WHERE ")
	builder.WriteString(strings.Join(conditions, " AND "))
	builder.WriteString(" ORDER BY uploaded_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var records []models.DocumentMetadata
	if err := r.db.SelectContext(ctx, &records, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return records, nil
}

// UpdateStatus transitions the persisted lifecycle state.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, tenantID, id string, status models.DocumentStatus, at time.Time) error {
	const query = `UPDATE documents SET status = $3, archived_at = CASE WHEN $3 = 'archived' THEN $4 ELSE archived_at END
	WHERE id = $1 AND tenant_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, tenantID, status, at)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRowAffected(res)
}

// UpdateCurrentVersion moves the current-version pointer.
func (r *DocumentRepository) UpdateCurrentVersion(ctx context.Context, tenantID, id, version, checksum, locator string) error {
	const query = `UPDATE documents SET current_version = $3, checksum = $4, locator = $5
	WHERE id = $1 AND tenant_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, tenantID, version, checksum, locator)
	if err != nil {
		return fmt.Errorf("update current version: %w", err)
	}
	return requireRowAffected(res)
}

// Delete removes a document row permanently. Callers must have passed
// the retention gate before getting here.
func (r *DocumentRepository) Delete(ctx context.Context, tenantID, id string) error {
	const query = `DELETE FROM documents WHERE id = $1 AND tenant_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRowAffected(res)
}

// AppendVersion adds one link to the append-only version chain.
func (r *DocumentRepository) AppendVersion(ctx context.Context, version *models.VersionInfo) error {
	if version.ChangedAt.IsZero() {
		version.ChangedAt = time.Now().UTC()
	}
	const query = `INSERT INTO document_versions
	(document_id, version, previous_version, changed_by, changed_at, change_reason, checksum, locator)
	VALUES (:document_id, :version, :previous_version, :changed_by, :changed_at, :change_reason, :checksum, :locator)`
	if _, err := r.db.NamedExecContext(ctx, query, version); err != nil {
		return fmt.Errorf("append document version: %w", err)
	}
	return nil
}

// ListVersions returns the version chain newest first.
func (r *DocumentRepository) ListVersions(ctx context.Context, documentID string) ([]models.VersionInfo, error) {
	const query = `SELECT document_id, version, previous_version, changed_by, changed_at, change_reason, checksum, locator
	FROM document_versions WHERE document_id = $1 ORDER BY changed_at DESC`
	var versions []models.VersionInfo
	if err := r.db.SelectContext(ctx, &versions, query, documentID); err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	return versions, nil
}

// GetVersion fetches one specific link in the chain.
func (r *DocumentRepository) GetVersion(ctx context.Context, documentID, version string) (*models.VersionInfo, error) {
	const query = `SELECT document_id, version, previous_version, changed_by, changed_at, change_reason, checksum, locator
	FROM document_versions WHERE document_id = $1 AND version = $2`
	var info models.VersionInfo
	if err := r.db.GetContext(ctx, &info, query, documentID, version); err != nil {
		return nil, err
	}
	return &info, nil
}

// LatestVersion returns the most recent link, or sql.ErrNoRows when the
// chain is empty.
func (r *DocumentRepository) LatestVersion(ctx context.Context, documentID string) (*models.VersionInfo, error) {
	const query = `SELECT document_id, version, previous_version, changed_by, changed_at, change_reason, checksum, locator
	FROM document_versions WHERE document_id = $1 ORDER BY changed_at DESC LIMIT 1`
	var info models.VersionInfo
	if err := r.db.GetContext(ctx, &info, query, documentID); err != nil {
		return nil, err
	}
	return &info, nil
}

func requireRowAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
