package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arkivet/document-api/internal/models"
)

// AuditRepository appends to the immutable audit trail. There are no
// update or delete paths: the trail is evidentiary.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog appends one audit entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs
	(id, user_id, tenant_id, action, resource, resource_id, classification, details, ip_address, user_agent, created_at)
	VALUES (:id, :user_id, :tenant_id, :action, :resource, :resource_id, :classification, :details, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}
	return nil
}

// ListByResource returns the trail for a single resource, oldest first.
func (r *AuditRepository) ListByResource(ctx context.Context, tenantID, resource, resourceID string) ([]models.AuditLog, error) {
	const query = `SELECT id, user_id, tenant_id, action, resource, resource_id, classification, details, ip_address, user_agent, created_at
	FROM audit_logs WHERE tenant_id = $1 AND resource = $2 AND resource_id = $3 ORDER BY created_at ASC`
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, tenantID, resource, resourceID); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
