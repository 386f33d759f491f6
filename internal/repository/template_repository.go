package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/arkivet/document-api/internal/models"
)

// TemplateRepository persists document templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create stores a template. Template ids are caller-assigned.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.Template) error {
	now := time.Now().UTC()
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	tmpl.UpdatedAt = now
	const query = `INSERT INTO templates
	(id, name, category, tenant_id, fields, layout, nsm_required, gdpr_required, created_at, updated_at)
	VALUES (:id, :name, :category, :tenant_id, :fields, :layout, :nsm_required, :gdpr_required, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tmpl); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// GetByID loads one template scoped to the tenant.
func (r *TemplateRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Template, error) {
	const query = `SELECT id, name, category, tenant_id, fields, layout, nsm_required, gdpr_required, created_at, updated_at
	FROM templates WHERE id = $1 AND tenant_id = $2`
	var tmpl models.Template
	if err := r.db.GetContext(ctx, &tmpl, query, id, tenantID); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// List returns all templates for a tenant, optionally by category.
func (r *TemplateRepository) List(ctx context.Context, tenantID, category string) ([]models.Template, error) {
	query := `SELECT id, name, category, tenant_id, fields, layout, nsm_required, gdpr_required, created_at, updated_at
	FROM templates WHERE tenant_id = $1`
	args := []interface{}{tenantID}
	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}
	query += ` ORDER BY name ASC`
	var templates []models.Template
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}
