package dto

// UpsertArchivePolicyRequest replaces a tenant's archive policy.
type UpsertArchivePolicyRequest struct {
	RetentionDays      int    `json:"retentionDays" validate:"required,min=1"`
	CompressionEnabled bool   `json:"compressionEnabled"`
	EncryptionRequired bool   `json:"encryptionRequired"`
	DeleteAfterArchive bool   `json:"deleteAfterArchive"`
	ArchiveFormat      string `json:"archiveFormat" validate:"required"`
}

// ArchiveDocumentRequest queues a document for archival.
type ArchiveDocumentRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
}
