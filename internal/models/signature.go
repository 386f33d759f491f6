package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SignatureProvider identifies the external e-signature integration.
type SignatureProvider string

const (
	ProviderBankID    SignatureProvider = "bankid"
	ProviderIDPorten  SignatureProvider = "idporten"
	ProviderDocuSign  SignatureProvider = "docusign"
	ProviderAdobeSign SignatureProvider = "adobesign"
)

// SignatureLevel is the assurance level requested from the provider.
type SignatureLevel string

const (
	SignatureLevelSimple    SignatureLevel = "simple"
	SignatureLevelAdvanced  SignatureLevel = "advanced"
	SignatureLevelQualified SignatureLevel = "qualified"
)

// Signature request and signer states.
const (
	SignatureStatusPending   = "pending"
	SignatureStatusCompleted = "completed"
	SignatureStatusDeclined  = "declined"
	SignatureStatusFailed    = "failed"
)

// Signer is one requested signatory on a document.
type Signer struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Role     string     `json:"role,omitempty"`
	Status   string     `json:"status"`
	SignedAt *time.Time `json:"signedAt,omitempty"`
}

// SignerList stores signers as a JSONB column.
type SignerList []Signer

// Value implements driver.Valuer.
func (l SignerList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal signer list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *SignerList) Scan(src interface{}) error {
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
		return fmt.Errorf("unsupported signer list source %T", src)
	}
	return json.Unmarshal(raw, l)
}

// SignatureRequest records a signing flow dispatched to a provider. Only
// the provider identity and returned reference are kept; provider
// protocol details stay outside the core.
type SignatureRequest struct {
	ID          string            `db:"id" json:"id"`
	DocumentID  string            `db:"document_id" json:"documentId"`
	TenantID    string            `db:"tenant_id" json:"tenantId"`
	Provider    SignatureProvider `db:"provider" json:"provider"`
	Level       SignatureLevel    `db:"level" json:"level"`
	ProviderURL string            `db:"provider_url" json:"providerUrl,omitempty"`
	Status      string            `db:"status" json:"status"`
	Signers     SignerList        `db:"signers" json:"signers"`
	RequestedBy string            `db:"requested_by" json:"requestedBy"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	CompletedAt *time.Time        `db:"completed_at" json:"completedAt,omitempty"`
}
