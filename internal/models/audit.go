package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionLogout           = "LOGOUT"
	AuditActionDocumentUpload   = "DOCUMENT_UPLOADED"
	AuditActionDocumentDelete   = "DOCUMENT_DELETED"
	AuditActionDocumentArchive  = "DOCUMENT_ARCHIVED"
	AuditActionVersionCreate    = "VERSION_CREATED"
	AuditActionVersionRestore   = "VERSION_RESTORED"
	AuditActionSignatureInit    = "SIGNATURE_INITIATED"
	AuditActionPolicyUpdate     = "ARCHIVE_POLICY_UPDATED"
	AuditActionTemplateCreate   = "TEMPLATE_CREATED"
	AuditActionComplianceView   = "COMPLIANCE_REPORT_VIEWED"
	AuditActionComplianceExport = "COMPLIANCE_REPORT_EXPORTED"
)

// AuditLog is one append-only audit trail record. The trail is the
// evidentiary record for compliance audits; rows are never updated or
// pruned by the application.
type AuditLog struct {
	ID             string    `db:"id" json:"id"`
	UserID         *string   `db:"user_id" json:"user_id,omitempty"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	Action         string    `db:"action" json:"action"`
	Resource       string    `db:"resource" json:"resource"`
	ResourceID     *string   `db:"resource_id" json:"resource_id,omitempty"`
	Classification string    `db:"classification" json:"classification,omitempty"`
	Details        []byte    `db:"details" json:"details,omitempty"`
	IPAddress      string    `db:"ip_address" json:"ip_address"`
	UserAgent      string    `db:"user_agent" json:"user_agent"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
