package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Classification is the NSM protection level assigned to a document.
type Classification string

const (
	ClassificationPublic       Classification = "PUBLIC"
	ClassificationInternal     Classification = "INTERNAL"
	ClassificationConfidential Classification = "CONFIDENTIAL"
	ClassificationRestricted   Classification = "RESTRICTED"
)

// Valid reports whether the classification is one of the NSM levels.
func (c Classification) Valid() bool {
	switch c {
	case ClassificationPublic, ClassificationInternal, ClassificationConfidential, ClassificationRestricted:
		return true
	}
	return false
}

// DocumentStatus tracks the persisted lifecycle state of a document.
type DocumentStatus string

const (
	DocumentStatusActive   DocumentStatus = "active"
	DocumentStatusArchived DocumentStatus = "archived"
	DocumentStatusDeleted  DocumentStatus = "deleted"
)

// RetentionStatus is the age-derived lifecycle state. It is computed on
// every evaluation and never persisted as ground truth.
type RetentionStatus string

const (
	RetentionActive   RetentionStatus = "active"
	RetentionArchived RetentionStatus = "archived"
	RetentionDeleted  RetentionStatus = "deleted"
)

// StringList stores an ordered list of strings as a JSONB column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported string list source %T", src)
	}
	return json.Unmarshal(raw, l)
}

// FieldMap stores free-form key/value pairs as a JSONB column. It carries
// the compliance custom fields (legalBasis, retentionPeriod and friends).
type FieldMap map[string]interface{}

// Value implements driver.Valuer.
func (m FieldMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal field map: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (m *FieldMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported field map source %T", src)
	}
	return json.Unmarshal(raw, m)
}

// StringField returns the trimmed string value stored under key, or ""
// when the key is absent, empty or not a string.
func (m FieldMap) StringField(key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// DocumentMetadata is the canonical per-document record. Identity,
// checksum and upload timestamp are immutable after creation.
type DocumentMetadata struct {
	ID             string         `db:"id" json:"id"`
	Filename       string         `db:"filename" json:"filename"`
	MimeType       string         `db:"mime_type" json:"mimeType"`
	Size           int64          `db:"size_bytes" json:"size"`
	Checksum       string         `db:"checksum" json:"checksum"`
	Locator        string         `db:"locator" json:"-"`
	UploadedAt     time.Time      `db:"uploaded_at" json:"uploadedAt"`
	UploadedBy     string         `db:"uploaded_by" json:"uploadedBy"`
	TenantID       string         `db:"tenant_id" json:"tenantId"`
	Classification Classification `db:"classification" json:"classification"`
	Status         DocumentStatus `db:"status" json:"status"`
	CurrentVersion string         `db:"current_version" json:"currentVersion"`
	Tags           StringList     `db:"tags" json:"tags"`
	CustomFields   FieldMap       `db:"custom_fields" json:"customFields"`
	ArchivedAt     *time.Time     `db:"archived_at" json:"archivedAt,omitempty"`
}

// VersionInfo is one link in a document's append-only version chain.
type VersionInfo struct {
	DocumentID      string    `db:"document_id" json:"documentId"`
	Version         string    `db:"version" json:"version"`
	PreviousVersion *string   `db:"previous_version" json:"previousVersion,omitempty"`
	ChangedBy       string    `db:"changed_by" json:"changedBy"`
	ChangedAt       time.Time `db:"changed_at" json:"changedAt"`
	ChangeReason    string    `db:"change_reason" json:"changeReason"`
	Checksum        string    `db:"checksum" json:"checksum"`
	Locator         string    `db:"locator" json:"-"`
}

// DocumentFilter narrows document listing queries.
type DocumentFilter struct {
	TenantID       string
	Classification Classification
	Status         DocumentStatus
	UploadedBy     string
	Limit          int
	Offset         int
}
