package dto

// TemplateFieldRequest describes one fillable slot in a new template.
type TemplateFieldRequest struct {
	Name       string   `json:"name" validate:"required"`
	Type       string   `json:"type" validate:"required"`
	Required   bool     `json:"required"`
	Validation string   `json:"validation"`
	Options    []string `json:"options"`
}

// CreateTemplateRequest registers a reusable document layout.
type CreateTemplateRequest struct {
	Name         string                 `json:"name" validate:"required"`
	Category     string                 `json:"category"`
	Fields       []TemplateFieldRequest `json:"fields" validate:"dive"`
	Layout       string                 `json:"layout"`
	NSMRequired  bool                   `json:"nsmRequired"`
	GDPRRequired bool                   `json:"gdprRequired"`
}

// RenderTemplateRequest fills a template's fields with values.
type RenderTemplateRequest struct {
	Values map[string]string `json:"values" validate:"required"`
}

// RenderTemplateResponse returns the rendered layout.
type RenderTemplateResponse struct {
	TemplateID string `json:"templateId"`
	Content    string `json:"content"`
}
