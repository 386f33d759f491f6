package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/pkg/errors"
)

// GDPR issue wording, paired with its recommendation by position.
const (
	issueMissingNSMTags     = "Missing NSM tags"
	recMissingNSMTags       = "Add appropriate NSM tags"
	issueMissingLegalBasis  = "Missing GDPR legal basis for processing"
	recMissingLegalBasis    = "Document legal basis for personal data processing"
	issueMissingRetention   = "Missing data retention period"
	recMissingRetention     = "Define clear data retention period"
	issueMissingRights      = "Missing data subject rights information"
	recMissingRights        = "Document available data subject rights"
	issueMissingConsent     = "Missing GDPR consent information"
	recMissingConsent       = "Add GDPR consent tracking"
	issueMissingDataSubject = "Missing data subject information"
	recMissingDataSubject   = "Add data subject identification"
)

const (
	auditTotalChecks = 10
	nsmTagPrefix     = "nsm:"
)

// Tag fragments that mark a document as carrying personal data.
var personalDataIndicators = []string{"ssn", "personal", "private", "gdpr"}

type complianceDocumentStore interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error)
}

// ComplianceService evaluates NSM and GDPR rules over document
// metadata. All checks run unconditionally; issues accumulate with no
// short-circuiting, so one failing rule never hides another.
type ComplianceService struct {
	documents complianceDocumentStore
	policy    *PolicyService
	bus       *events.Bus
	logger    *zap.Logger
}

func NewComplianceService(documents complianceDocumentStore, policy *PolicyService, bus *events.Bus, logger *zap.Logger) *ComplianceService {
	return &ComplianceService{documents: documents, policy: policy, bus: bus, logger: logger}
}

// GenerateReport builds a fresh compliance report for a stored
// document. Reports are derived on demand and never cached; a stale
// report would misrepresent compliance state.
func (s *ComplianceService) GenerateReport(ctx context.Context, tenantID, documentID string) (*models.ComplianceReport, error) {
	doc, err := s.documents.GetByID(ctx, tenantID, documentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrNotFound
		}
		return nil, err
	}
	report := s.Evaluate(doc, time.Now().UTC())
	s.bus.Publish(events.Event{
		Name:       events.ComplianceReportGenerated,
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Attributes: map[string]interface{}{"gdprCompliant": report.GDPRCompliant},
	})
	s.logger.Debug("compliance report generated",
		zap.String("document_id", documentID),
		zap.Int("issues", len(report.Issues)),
		zap.Bool("gdpr_compliant", report.GDPRCompliant))
	return report, nil
}

// Evaluate runs every compliance rule against the metadata snapshot.
func (s *ComplianceService) Evaluate(doc *models.DocumentMetadata, now time.Time) *models.ComplianceReport {
	report := &models.ComplianceReport{
		DocumentID:      doc.ID,
		RetentionStatus: s.policy.RetentionStatus(doc, now),
		LastAudit:       now,
		Issues:          []string{},
		Recommendations: []string{},
	}

	classification := s.policy.ValidateClassification(doc)
	report.NSMClassification = classification.Reported
	report.Issues = append(report.Issues, classification.Issues...)
	report.Recommendations = append(report.Recommendations, classification.Recommendations...)

	if !hasNSMTag(doc.Tags) {
		report.Issues = append(report.Issues, issueMissingNSMTags)
		report.Recommendations = append(report.Recommendations, recMissingNSMTags)
	}

	gdprIssues, gdprRecs := evaluateGDPR(doc)
	report.GDPRCompliant = len(gdprIssues) == 0
	report.Issues = append(report.Issues, gdprIssues...)
	report.Recommendations = append(report.Recommendations, gdprRecs...)

	return report
}

// AuditDocument condenses a report into a pass/fail score out of a
// fixed total of checks.
func (s *ComplianceService) AuditDocument(ctx context.Context, tenantID, documentID string) (*models.AuditResult, error) {
	report, err := s.GenerateReport(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	return &models.AuditResult{
		DocumentID: documentID,
		Passed:     len(report.Issues) == 0,
		Violations: report.Issues,
		Score:      auditScore(len(report.Issues)),
	}, nil
}

// auditScore converts an issue count to a 0-100 percentage against the
// fixed check total. The count may exceed the total, so the result is
// clamped instead of going negative.
func auditScore(issueCount int) float64 {
	score := float64(auditTotalChecks-issueCount) / auditTotalChecks * 100
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func hasNSMTag(tags models.StringList) bool {
	for _, tag := range tags {
		if strings.HasPrefix(strings.ToLower(tag), nsmTagPrefix) {
			return true
		}
	}
	return false
}

func evaluateGDPR(doc *models.DocumentMetadata) ([]string, []string) {
	var issues, recs []string

	if doc.CustomFields.StringField("legalBasis") == "" {
		issues = append(issues, issueMissingLegalBasis)
		recs = append(recs, recMissingLegalBasis)
	}
	if doc.CustomFields.StringField("retentionPeriod") == "" {
		issues = append(issues, issueMissingRetention)
		recs = append(recs, recMissingRetention)
	}
	if doc.CustomFields.StringField("dataSubjectRights") == "" {
		issues = append(issues, issueMissingRights)
		recs = append(recs, recMissingRights)
	}

	if containsPersonalData(doc.Tags) {
		if doc.CustomFields.StringField("gdprConsent") == "" {
			issues = append(issues, issueMissingConsent)
			recs = append(recs, recMissingConsent)
		}
		if doc.CustomFields.StringField("dataSubject") == "" {
			issues = append(issues, issueMissingDataSubject)
			recs = append(recs, recMissingDataSubject)
		}
	}

	return issues, recs
}

func containsPersonalData(tags models.StringList) bool {
	for _, tag := range tags {
		lowered := strings.ToLower(tag)
		for _, indicator := range personalDataIndicators {
			if strings.Contains(lowered, indicator) {
				return true
			}
		}
	}
	return false
}
