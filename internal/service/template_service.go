package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

// Fields an NSM-compliant template must declare so generated documents
// stay traceable.
var nsmRequiredTemplateFields = []string{"classification", "created_by", "created_date"}

type templateStore interface {
	Create(ctx context.Context, tmpl *models.Template) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Template, error)
	List(ctx context.Context, tenantID, category string) ([]models.Template, error)
}

// TemplateService manages reusable document layouts and renders them
// with caller-supplied field values.
type TemplateService struct {
	templates templateStore
	audit     auditLogger
	bus       *events.Bus
	logger    *zap.Logger
}

func NewTemplateService(templates templateStore, audit auditLogger, bus *events.Bus, logger *zap.Logger) *TemplateService {
	return &TemplateService{templates: templates, audit: audit, bus: bus, logger: logger}
}

// Create validates and stores a template.
func (s *TemplateService) Create(ctx context.Context, tmpl *models.Template, createdBy string) (*models.Template, error) {
	if err := validateTemplate(tmpl); err != nil {
		return nil, err
	}

	tmpl.ID = uuid.NewString()
	now := time.Now().UTC()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	if err := s.templates.Create(ctx, tmpl); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{
		Name:     events.TemplateCreated,
		TenantID: tmpl.TenantID,
		Attributes: map[string]interface{}{
			"templateId": tmpl.ID,
			"name":       tmpl.Name,
		},
	})
	s.writeAuditLog(ctx, tmpl, createdBy)

	s.logger.Info("template created",
		zap.String("template_id", tmpl.ID),
		zap.String("tenant_id", tmpl.TenantID))
	return tmpl, nil
}

// Get returns one template, tenant scoped.
func (s *TemplateService) Get(ctx context.Context, tenantID, id string) (*models.Template, error) {
	tmpl, err := s.templates.GetByID(ctx, tenantID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	return tmpl, nil
}

// List returns templates for the tenant, optionally narrowed by
// category.
func (s *TemplateService) List(ctx context.Context, tenantID, category string) ([]models.Template, error) {
	return s.templates.List(ctx, tenantID, category)
}

// Render fills the template layout with the provided values. Every
// required field must be present and every value must satisfy its
// field's type.
func (s *TemplateService) Render(ctx context.Context, tenantID, id string, values map[string]string) (string, error) {
	tmpl, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return "", err
	}
	if err := validateFieldValues(tmpl.Fields, values); err != nil {
		return "", err
	}

	rendered := tmpl.Layout
	for name, value := range values {
		rendered = strings.ReplaceAll(rendered, "{{"+name+"}}", value)
	}
	return rendered, nil
}

func validateTemplate(tmpl *models.Template) error {
	if tmpl.Name == "" {
		return errors.Clone(errors.ErrValidation, "template name is required")
	}
	seen := make(map[string]struct{}, len(tmpl.Fields))
	for _, field := range tmpl.Fields {
		if field.Name == "" {
			return errors.Clone(errors.ErrValidation, "template field name is required")
		}
		if !field.Type.Valid() {
			return errors.Clone(errors.ErrValidation, fmt.Sprintf("unsupported field type %q", field.Type))
		}
		if field.Type == models.FieldTypeSelect && len(field.Options) == 0 {
			return errors.Clone(errors.ErrValidation, fmt.Sprintf("select field %q needs options", field.Name))
		}
		if _, dup := seen[field.Name]; dup {
			return errors.Clone(errors.ErrValidation, fmt.Sprintf("duplicate field %q", field.Name))
		}
		seen[field.Name] = struct{}{}
	}

	if tmpl.NSMRequired {
		for _, required := range nsmRequiredTemplateFields {
			if _, ok := seen[required]; !ok {
				return errors.Clone(errors.ErrValidation, fmt.Sprintf("NSM templates require a %q field", required))
			}
		}
	}
	return nil
}

func validateFieldValues(fields models.TemplateFieldList, values map[string]string) error {
	for _, field := range fields {
		value, present := values[field.Name]
		if !present || value == "" {
			if field.Required {
				return errors.Clone(errors.ErrValidation, fmt.Sprintf("missing required field %q", field.Name))
			}
			continue
		}
		if err := validateFieldValue(field, value); err != nil {
			return err
		}
	}
	return nil
}

func validateFieldValue(field models.TemplateField, value string) error {
	switch field.Type {
	case models.FieldTypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return errors.Clone(errors.ErrValidation, fmt.Sprintf("field %q must be numeric", field.Name))
		}
	case models.FieldTypeDate:
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return errors.Clone(errors.ErrValidation, fmt.Sprintf("field %q must be a date (YYYY-MM-DD)", field.Name))
		}
	case models.FieldTypeCheckbox:
		if value != "true" && value != "false" {
			return errors.Clone(errors.ErrValidation, fmt.Sprintf("field %q must be true or false", field.Name))
		}
	case models.FieldTypeSelect:
		for _, option := range field.Options {
			if option == value {
				return nil
			}
		}
		return errors.Clone(errors.ErrValidation, fmt.Sprintf("field %q must be one of its options", field.Name))
	}
	return nil
}

func (s *TemplateService) writeAuditLog(ctx context.Context, tmpl *models.Template, userID string) {
	entry := &models.AuditLog{
		TenantID:   tmpl.TenantID,
		Action:     models.AuditActionTemplateCreate,
		Resource:   "template",
		ResourceID: &tmpl.ID,
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Error("audit log write failed",
			zap.String("template_id", tmpl.ID), zap.Error(err))
	}
}
