package models

import "time"

// Reported classification values for documents that fail validation.
const (
	ClassificationUnknown = "UNKNOWN"
	ClassificationInvalid = "INVALID"
)

// ComplianceReport is derived on demand from a document's metadata.
// Issues and recommendations are parallel lists: the recommendation at
// position i remediates the issue at position i.
type ComplianceReport struct {
	DocumentID        string          `json:"documentId"`
	NSMClassification string          `json:"nsmClassification"`
	GDPRCompliant     bool            `json:"gdprCompliant"`
	RetentionStatus   RetentionStatus `json:"retentionStatus"`
	LastAudit         time.Time       `json:"lastAudit"`
	Issues            []string        `json:"issues"`
	Recommendations   []string        `json:"recommendations"`
}

// AuditResult summarises a compliance report as a pass/fail score.
type AuditResult struct {
	DocumentID string   `json:"documentId"`
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations"`
	Score      float64  `json:"score"`
}
