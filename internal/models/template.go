package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FieldType enumerates supported template field kinds.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
)

// Valid reports whether the field type is supported.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeDate, FieldTypeSelect, FieldTypeCheckbox:
		return true
	}
	return false
}

// TemplateField describes one fillable slot in a template layout.
type TemplateField struct {
	Name       string    `json:"name"`
	Type       FieldType `json:"type"`
	Required   bool      `json:"required"`
	Validation string    `json:"validation,omitempty"`
	Options    []string  `json:"options,omitempty"`
}

// TemplateFieldList stores template fields as a JSONB column.
type TemplateFieldList []TemplateField

// Value implements driver.Valuer.
func (l TemplateFieldList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal template fields: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *TemplateFieldList) Scan(src interface{}) error {
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
		return fmt.Errorf("unsupported template field source %T", src)
	}
	return json.Unmarshal(raw, l)
}

// Template is a reusable document layout with fillable fields.
// NSM-compliant templates must carry classification, created_by and
// created_date fields so generated documents stay traceable.
type Template struct {
	ID           string            `db:"id" json:"id"`
	Name         string            `db:"name" json:"name"`
	Category     string            `db:"category" json:"category"`
	TenantID     string            `db:"tenant_id" json:"tenantId"`
	Fields       TemplateFieldList `db:"fields" json:"fields"`
	Layout       string            `db:"layout" json:"layout"`
	NSMRequired  bool              `db:"nsm_required" json:"nsmRequired"`
	GDPRRequired bool              `db:"gdpr_required" json:"gdprRequired"`
	CreatedAt    time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updatedAt"`
}
