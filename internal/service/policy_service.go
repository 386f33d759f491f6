package service

import (
	"time"

	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/errors"
)

// Classification issue wording. The evaluator pairs each issue with the
// recommendation at the same position.
const (
	issueMissingClassification = "Missing NSM classification"
	recMissingClassification   = "Assign appropriate NSM classification level"
	issueInvalidClassification = "Invalid NSM classification"
	recInvalidClassification   = "Use valid NSM classification levels"
)

// ClassificationResult reports the effective classification for a
// document together with any validation findings.
type ClassificationResult struct {
	Reported        string
	Valid           bool
	Issues          []string
	Recommendations []string
}

// PolicyService computes classification validity, derived retention
// status and the deletion gate. All methods are pure given their inputs
// and the injected thresholds.
type PolicyService struct {
	archiveAfterDays     int
	deleteAfterDays      int
	defaultRetentionDays int
}

func NewPolicyService(cfg config.ComplianceConfig) *PolicyService {
	archiveAfter := cfg.ArchiveAfterDays
	if archiveAfter <= 0 {
		archiveAfter = 365
	}
	deleteAfter := cfg.DeleteAfterDays
	if deleteAfter <= 0 {
		deleteAfter = 2555
	}
	return &PolicyService{
		archiveAfterDays:     archiveAfter,
		deleteAfterDays:      deleteAfter,
		defaultRetentionDays: cfg.DefaultRetentionDays,
	}
}

// ValidateClassification checks the NSM level on a document. An absent
// classification reports UNKNOWN, a value outside the NSM set reports
// INVALID. Both are compliance findings, never errors.
func (s *PolicyService) ValidateClassification(doc *models.DocumentMetadata) ClassificationResult {
	if doc.Classification == "" {
		return ClassificationResult{
			Reported:        models.ClassificationUnknown,
			Issues:          []string{issueMissingClassification},
			Recommendations: []string{recMissingClassification},
		}
	}
	if !doc.Classification.Valid() {
		return ClassificationResult{
			Reported:        models.ClassificationInvalid,
			Issues:          []string{issueInvalidClassification},
			Recommendations: []string{recInvalidClassification},
		}
	}
	return ClassificationResult{Reported: string(doc.Classification), Valid: true}
}

// RetentionStatus derives the lifecycle state from document age. The
// status is recomputed on every call and never persisted as ground
// truth.
func (s *PolicyService) RetentionStatus(doc *models.DocumentMetadata, now time.Time) models.RetentionStatus {
	days := daysSince(doc.UploadedAt, now)
	switch {
	case days > s.deleteAfterDays:
		return models.RetentionDeleted
	case days > s.archiveAfterDays:
		return models.RetentionArchived
	default:
		return models.RetentionActive
	}
}

// CheckDeletionGate refuses deletion while the retention period still
// runs. The tenant's archive policy wins when present; otherwise the
// configured default applies, and a zero default leaves deletion open.
func (s *PolicyService) CheckDeletionGate(doc *models.DocumentMetadata, policy *models.ArchivePolicy, now time.Time) error {
	retentionDays := s.defaultRetentionDays
	if policy != nil && policy.RetentionDays > 0 {
		retentionDays = policy.RetentionDays
	}
	if retentionDays <= 0 {
		return nil
	}
	if now.Before(doc.UploadedAt.AddDate(0, 0, retentionDays)) {
		return errors.ErrRetentionPolicy
	}
	return nil
}

func daysSince(from, now time.Time) int {
	if now.Before(from) {
		return 0
	}
	return int(now.Sub(from) / (24 * time.Hour))
}
