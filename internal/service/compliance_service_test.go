package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/errors"
)

type stubDocumentStore struct {
	docs map[string]*models.DocumentMetadata
}

func (s *stubDocumentStore) GetByID(_ context.Context, tenantID, id string) (*models.DocumentMetadata, error) {
	doc, ok := s.docs[id]
	if !ok || doc.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return doc, nil
}

func newComplianceService(docs ...*models.DocumentMetadata) *ComplianceService {
	store := &stubDocumentStore{docs: map[string]*models.DocumentMetadata{}}
	for _, doc := range docs {
		store.docs[doc.ID] = doc
	}
	policy := NewPolicyService(config.ComplianceConfig{ArchiveAfterDays: 365, DeleteAfterDays: 2555})
	return NewComplianceService(store, policy, events.NewBus(zap.NewNop()), zap.NewNop())
}

func compliantDocument() *models.DocumentMetadata {
	return &models.DocumentMetadata{
		ID:             "doc-1",
		TenantID:       "oslo-municipality",
		Classification: models.ClassificationInternal,
		UploadedAt:     time.Now().UTC().AddDate(0, 0, -10),
		Tags:           models.StringList{"nsm:internal"},
		CustomFields: models.FieldMap{
			"legalBasis":        "x",
			"retentionPeriod":   "7y",
			"dataSubjectRights": "documented",
		},
	}
}

func TestGenerateReportCompliantDocument(t *testing.T) {
	svc := newComplianceService(compliantDocument())

	report, err := svc.GenerateReport(context.Background(), "oslo-municipality", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, "INTERNAL", report.NSMClassification)
	assert.True(t, report.GDPRCompliant)
	assert.Empty(t, report.Issues)
	assert.Empty(t, report.Recommendations)
	assert.Equal(t, models.RetentionActive, report.RetentionStatus)
	assert.False(t, report.LastAudit.IsZero())
}

func TestGenerateReportMissingEverything(t *testing.T) {
	doc := &models.DocumentMetadata{
		ID:         "doc-2",
		TenantID:   "oslo-municipality",
		UploadedAt: time.Now().UTC(),
	}
	svc := newComplianceService(doc)

	report, err := svc.GenerateReport(context.Background(), "oslo-municipality", "doc-2")
	require.NoError(t, err)

	assert.Equal(t, models.ClassificationUnknown, report.NSMClassification)
	assert.False(t, report.GDPRCompliant)
	assert.Contains(t, report.Issues, "Missing NSM classification")
	assert.Contains(t, report.Issues, "Missing NSM tags")
	assert.Contains(t, report.Issues, "Missing GDPR legal basis for processing")
	assert.Contains(t, report.Issues, "Missing data retention period")
	assert.Contains(t, report.Issues, "Missing data subject rights information")
	// Position i in recommendations remediates position i in issues.
	require.Len(t, report.Recommendations, len(report.Issues))
}

func TestGenerateReportInvalidClassification(t *testing.T) {
	doc := compliantDocument()
	doc.Classification = "TOP_SECRET"
	svc := newComplianceService(doc)

	report, err := svc.GenerateReport(context.Background(), "oslo-municipality", "doc-1")
	require.NoError(t, err)

	assert.Equal(t, models.ClassificationInvalid, report.NSMClassification)
	assert.Contains(t, report.Issues, "Invalid NSM classification")
	assert.Contains(t, report.Recommendations, "Use valid NSM classification levels")
	// GDPR checks still run; the classification failure does not
	// short-circuit them.
	assert.True(t, report.GDPRCompliant)
}

func TestGenerateReportPersonalDataRequiresConsent(t *testing.T) {
	doc := compliantDocument()
	doc.Tags = models.StringList{"nsm:internal", "contains-Personal-data"}
	svc := newComplianceService(doc)

	report, err := svc.GenerateReport(context.Background(), "oslo-municipality", "doc-1")
	require.NoError(t, err)

	assert.False(t, report.GDPRCompliant)
	assert.Contains(t, report.Issues, "Missing GDPR consent information")
	assert.Contains(t, report.Issues, "Missing data subject information")

	doc.CustomFields["gdprConsent"] = "explicit"
	doc.CustomFields["dataSubject"] = "Ola Nordmann"
	report, err = svc.GenerateReport(context.Background(), "oslo-municipality", "doc-1")
	require.NoError(t, err)
	assert.True(t, report.GDPRCompliant)
}

func TestGenerateReportWhitespaceFieldCountsAsMissing(t *testing.T) {
	doc := compliantDocument()
	doc.CustomFields["legalBasis"] = "   "
	svc := newComplianceService(doc)

	report, err := svc.GenerateReport(context.Background(), "oslo-municipality", "doc-1")
	require.NoError(t, err)

	assert.False(t, report.GDPRCompliant)
	assert.Contains(t, report.Issues, "Missing GDPR legal basis for processing")
}

func TestGenerateReportPersonalDataIndicators(t *testing.T) {
	for _, tag := range []string{"ssn-records", "PERSONAL", "private-notes", "gdpr-scope"} {
		doc := compliantDocument()
		doc.Tags = append(doc.Tags, tag)
		svc := newComplianceService(doc)

		report, err := svc.GenerateReport(context.Background(), "oslo-municipality", "doc-1")
		require.NoError(t, err)
		assert.False(t, report.GDPRCompliant, "tag %q should require consent fields", tag)
	}
}

func TestGenerateReportScopesTenant(t *testing.T) {
	svc := newComplianceService(compliantDocument())

	_, err := svc.GenerateReport(context.Background(), "other-tenant", "doc-1")
	require.ErrorIs(t, err, errors.ErrNotFound)
}

func TestGenerateReportMissingDocument(t *testing.T) {
	svc := newComplianceService(compliantDocument())

	_, err := svc.GenerateReport(context.Background(), "oslo-municipality", "missing")
	require.ErrorIs(t, err, errors.ErrNotFound)

	appErr := errors.FromError(err)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
	assert.Equal(t, 404, appErr.Status)
}

func TestAuditDocumentScore(t *testing.T) {
	t.Run("zero issues scores 100", func(t *testing.T) {
		svc := newComplianceService(compliantDocument())
		result, err := svc.AuditDocument(context.Background(), "oslo-municipality", "doc-1")
		require.NoError(t, err)
		assert.True(t, result.Passed)
		assert.Empty(t, result.Violations)
		assert.Equal(t, float64(100), result.Score)
	})

	t.Run("issues lower the score", func(t *testing.T) {
		doc := &models.DocumentMetadata{ID: "doc-3", TenantID: "oslo-municipality", UploadedAt: time.Now().UTC()}
		svc := newComplianceService(doc)
		result, err := svc.AuditDocument(context.Background(), "oslo-municipality", "doc-3")
		require.NoError(t, err)
		assert.False(t, result.Passed)
		assert.Less(t, result.Score, float64(100))
		assert.Equal(t, float64(auditTotalChecks-len(result.Violations))/auditTotalChecks*100, result.Score)
	})
}

func TestAuditScoreClamped(t *testing.T) {
	assert.Equal(t, float64(100), auditScore(0))
	assert.Equal(t, float64(50), auditScore(5))
	assert.Equal(t, float64(0), auditScore(10))
	assert.Equal(t, float64(0), auditScore(15))
}

func TestAuditScoreMonotonic(t *testing.T) {
	prev := auditScore(0)
	for n := 1; n <= 12; n++ {
		current := auditScore(n)
		assert.LessOrEqual(t, current, prev)
		prev = current
	}
}
