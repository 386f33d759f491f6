package models

import "time"

// ArchiveFormat selects the artifact container produced on archival.
type ArchiveFormat string

const (
	ArchiveFormatZip ArchiveFormat = "zip"
	ArchiveFormatTar ArchiveFormat = "tar"
	ArchiveFormat7z  ArchiveFormat = "7z"
)

// Valid reports whether the format is supported.
func (f ArchiveFormat) Valid() bool {
	switch f {
	case ArchiveFormatZip, ArchiveFormatTar, ArchiveFormat7z:
		return true
	}
	return false
}

// ArchivePolicy is the per-tenant retention rule set. One active policy
// per tenant; later writes replace the prior policy wholesale.
type ArchivePolicy struct {
	TenantID           string        `db:"tenant_id" json:"tenantId"`
	RetentionDays      int           `db:"retention_days" json:"retentionDays"`
	CompressionEnabled bool          `db:"compression_enabled" json:"compressionEnabled"`
	EncryptionRequired bool          `db:"encryption_required" json:"encryptionRequired"`
	DeleteAfterArchive bool          `db:"delete_after_archive" json:"deleteAfterArchive"`
	ArchiveFormat      ArchiveFormat `db:"archive_format" json:"archiveFormat"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updatedAt"`
}

// ArchiveRecord tracks an archive artifact produced for a document.
type ArchiveRecord struct {
	ID          string        `db:"id" json:"id"`
	DocumentID  string        `db:"document_id" json:"documentId"`
	TenantID    string        `db:"tenant_id" json:"tenantId"`
	Format      ArchiveFormat `db:"format" json:"format"`
	ArtifactRef string        `db:"artifact_ref" json:"artifactRef"`
	Status      string        `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time    `db:"completed_at" json:"completedAt,omitempty"`
}

// Archive artifact states.
const (
	ArchiveStatusPending   = "pending"
	ArchiveStatusCompleted = "completed"
	ArchiveStatusFailed    = "failed"
)
