package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/errors"
)

func defaultPolicyService() *PolicyService {
	return NewPolicyService(config.ComplianceConfig{
		ArchiveAfterDays: 365,
		DeleteAfterDays:  2555,
	})
}

func TestValidateClassification(t *testing.T) {
	svc := defaultPolicyService()

	tests := []struct {
		name           string
		classification models.Classification
		reported       string
		valid          bool
		issue          string
		recommendation string
	}{
		{"missing", "", models.ClassificationUnknown, false, "Missing NSM classification", "Assign appropriate NSM classification level"},
		{"invalid", "TOP_SECRET", models.ClassificationInvalid, false, "Invalid NSM classification", "Use valid NSM classification levels"},
		{"public", models.ClassificationPublic, "PUBLIC", true, "", ""},
		{"restricted", models.ClassificationRestricted, "RESTRICTED", true, "", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := svc.ValidateClassification(&models.DocumentMetadata{Classification: tc.classification})
			assert.Equal(t, tc.reported, result.Reported)
			assert.Equal(t, tc.valid, result.Valid)
			if tc.issue != "" {
				require.Len(t, result.Issues, 1)
				require.Len(t, result.Recommendations, 1)
				assert.Equal(t, tc.issue, result.Issues[0])
				assert.Equal(t, tc.recommendation, result.Recommendations[0])
			} else {
				assert.Empty(t, result.Issues)
				assert.Empty(t, result.Recommendations)
			}
		})
	}
}

func TestRetentionStatusBoundaries(t *testing.T) {
	svc := defaultPolicyService()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		days   int
		status models.RetentionStatus
	}{
		{0, models.RetentionActive},
		{364, models.RetentionActive},
		{365, models.RetentionActive},
		{366, models.RetentionArchived},
		{2554, models.RetentionArchived},
		{2555, models.RetentionArchived},
		{2556, models.RetentionDeleted},
	}

	for _, tc := range tests {
		doc := &models.DocumentMetadata{UploadedAt: now.AddDate(0, 0, -tc.days)}
		assert.Equal(t, tc.status, svc.RetentionStatus(doc, now), "day %d", tc.days)
	}
}

func TestRetentionStatusFloorsPartialDays(t *testing.T) {
	svc := defaultPolicyService()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// 365 days and 23 hours still floors to 365.
	doc := &models.DocumentMetadata{UploadedAt: now.Add(-365*24*time.Hour - 23*time.Hour)}
	assert.Equal(t, models.RetentionActive, svc.RetentionStatus(doc, now))
}

func TestRetentionStatusConfigurableThresholds(t *testing.T) {
	svc := NewPolicyService(config.ComplianceConfig{ArchiveAfterDays: 30, DeleteAfterDays: 90})
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	doc := &models.DocumentMetadata{UploadedAt: now.AddDate(0, 0, -31)}
	assert.Equal(t, models.RetentionArchived, svc.RetentionStatus(doc, now))

	doc.UploadedAt = now.AddDate(0, 0, -91)
	assert.Equal(t, models.RetentionDeleted, svc.RetentionStatus(doc, now))
}

func TestCheckDeletionGate(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	doc := &models.DocumentMetadata{UploadedAt: now.AddDate(0, 0, -100)}

	t.Run("tenant policy still running", func(t *testing.T) {
		svc := defaultPolicyService()
		policy := &models.ArchivePolicy{RetentionDays: 365}
		err := svc.CheckDeletionGate(doc, policy, now)
		require.ErrorIs(t, err, errors.ErrRetentionPolicy)
	})

	t.Run("tenant policy elapsed", func(t *testing.T) {
		svc := defaultPolicyService()
		policy := &models.ArchivePolicy{RetentionDays: 90}
		require.NoError(t, svc.CheckDeletionGate(doc, policy, now))
	})

	t.Run("default retention applies without policy", func(t *testing.T) {
		svc := NewPolicyService(config.ComplianceConfig{DefaultRetentionDays: 365})
		err := svc.CheckDeletionGate(doc, nil, now)
		require.ErrorIs(t, err, errors.ErrRetentionPolicy)
	})

	t.Run("zero default leaves deletion open", func(t *testing.T) {
		svc := defaultPolicyService()
		require.NoError(t, svc.CheckDeletionGate(doc, nil, now))
	})

	t.Run("gate ignores classification and tenant", func(t *testing.T) {
		svc := NewPolicyService(config.ComplianceConfig{DefaultRetentionDays: 3650})
		for _, c := range []models.Classification{models.ClassificationPublic, models.ClassificationRestricted} {
			scoped := *doc
			scoped.Classification = c
			scoped.TenantID = "tenant-" + string(c)
			require.ErrorIs(t, svc.CheckDeletionGate(&scoped, nil, now), errors.ErrRetentionPolicy)
		}
	})
}
