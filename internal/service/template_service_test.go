package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

type fakeTemplateStore struct {
	mu        sync.Mutex
	templates map[string]*models.Template
}

func newFakeTemplateStore() *fakeTemplateStore {
	return &fakeTemplateStore{templates: map[string]*models.Template{}}
}

func (f *fakeTemplateStore) Create(_ context.Context, tmpl *models.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *tmpl
	f.templates[tmpl.ID] = &clone
	return nil
}

func (f *fakeTemplateStore) GetByID(_ context.Context, tenantID, id string) (*models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tmpl, ok := f.templates[id]
	if !ok || tmpl.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	clone := *tmpl
	return &clone, nil
}

func (f *fakeTemplateStore) List(_ context.Context, tenantID, category string) ([]models.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Template
	for _, tmpl := range f.templates {
		if tmpl.TenantID != tenantID {
			continue
		}
		if category != "" && tmpl.Category != category {
			continue
		}
		out = append(out, *tmpl)
	}
	return out, nil
}

func newTemplateService(t *testing.T) (*TemplateService, *fakeAuditLogger) {
	t.Helper()
	audit := &fakeAuditLogger{}
	return NewTemplateService(newFakeTemplateStore(), audit, events.NewBus(zap.NewNop()), zap.NewNop()), audit
}

func caseTemplate() *models.Template {
	return &models.Template{
		Name:     "Case decision",
		Category: "casework",
		TenantID: "oslo-municipality",
		Layout:   "Decision for {{applicant}} on {{decision_date}}: {{outcome}}",
		Fields: models.TemplateFieldList{
			{Name: "applicant", Type: models.FieldTypeText, Required: true},
			{Name: "decision_date", Type: models.FieldTypeDate, Required: true},
			{Name: "outcome", Type: models.FieldTypeSelect, Required: true, Options: []string{"granted", "denied"}},
		},
	}
}

func TestCreateTemplate(t *testing.T) {
	svc, audit := newTemplateService(t)

	created, err := svc.Create(context.Background(), caseTemplate(), "admin-1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Contains(t, audit.actions(), models.AuditActionTemplateCreate)
}

func TestCreateTemplateValidation(t *testing.T) {
	svc, _ := newTemplateService(t)

	t.Run("missing name", func(t *testing.T) {
		tmpl := caseTemplate()
		tmpl.Name = ""
		_, err := svc.Create(context.Background(), tmpl, "admin-1")
		require.Error(t, err)
	})

	t.Run("unsupported field type", func(t *testing.T) {
		tmpl := caseTemplate()
		tmpl.Fields[0].Type = "richtext"
		_, err := svc.Create(context.Background(), tmpl, "admin-1")
		require.Error(t, err)
	})

	t.Run("select without options", func(t *testing.T) {
		tmpl := caseTemplate()
		tmpl.Fields[2].Options = nil
		_, err := svc.Create(context.Background(), tmpl, "admin-1")
		require.Error(t, err)
	})

	t.Run("duplicate field names", func(t *testing.T) {
		tmpl := caseTemplate()
		tmpl.Fields = append(tmpl.Fields, models.TemplateField{Name: "applicant", Type: models.FieldTypeText})
		_, err := svc.Create(context.Background(), tmpl, "admin-1")
		require.Error(t, err)
	})
}

func TestCreateNSMTemplateRequiresTraceFields(t *testing.T) {
	svc, _ := newTemplateService(t)

	tmpl := caseTemplate()
	tmpl.NSMRequired = true
	_, err := svc.Create(context.Background(), tmpl, "admin-1")
	require.Error(t, err)

	tmpl.Fields = append(tmpl.Fields,
		models.TemplateField{Name: "classification", Type: models.FieldTypeSelect, Options: []string{"PUBLIC", "INTERNAL", "CONFIDENTIAL", "RESTRICTED"}},
		models.TemplateField{Name: "created_by", Type: models.FieldTypeText},
		models.TemplateField{Name: "created_date", Type: models.FieldTypeDate},
	)
	_, err = svc.Create(context.Background(), tmpl, "admin-1")
	require.NoError(t, err)
}

func TestRenderTemplate(t *testing.T) {
	svc, _ := newTemplateService(t)

	created, err := svc.Create(context.Background(), caseTemplate(), "admin-1")
	require.NoError(t, err)

	rendered, err := svc.Render(context.Background(), "oslo-municipality", created.ID, map[string]string{
		"applicant":     "Kari Nordmann",
		"decision_date": "2026-08-15",
		"outcome":       "granted",
	})
	require.NoError(t, err)
	assert.Equal(t, "Decision for Kari Nordmann on 2026-08-15: granted", rendered)
}

func TestRenderTemplateValidation(t *testing.T) {
	svc, _ := newTemplateService(t)

	created, err := svc.Create(context.Background(), caseTemplate(), "admin-1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		values map[string]string
	}{
		{"missing required", map[string]string{"applicant": "Kari"}},
		{"bad date", map[string]string{"applicant": "Kari", "decision_date": "15/08/2026", "outcome": "granted"}},
		{"bad select option", map[string]string{"applicant": "Kari", "decision_date": "2026-08-15", "outcome": "maybe"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Render(context.Background(), "oslo-municipality", created.ID, tc.values)
			require.Error(t, err)
		})
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	svc, _ := newTemplateService(t)

	_, err := svc.Render(context.Background(), "oslo-municipality", "missing", nil)
	require.ErrorIs(t, err, errors.ErrNotFound)
}
