package dto

import "github.com/arkivet/document-api/internal/models"

// UploadDocumentRequest carries the metadata fields of a multipart
// document upload. Tags and custom fields arrive as JSON strings so
// they survive form encoding.
type UploadDocumentRequest struct {
	Classification string `form:"classification" json:"classification"`
	Tags           string `form:"tags" json:"tags"`
	CustomFields   string `form:"customFields" json:"customFields"`
}

// DocumentFilter narrows document listing queries.
type DocumentFilter struct {
	Classification string `form:"classification" json:"classification"`
	Status         string `form:"status" json:"status"`
	UploadedBy     string `form:"uploadedBy" json:"uploadedBy"`
	Limit          int    `form:"limit" json:"limit"`
	Offset         int    `form:"offset" json:"offset"`
}

// DocumentResponse pairs document metadata with a signed download
// reference.
type DocumentResponse struct {
	models.DocumentMetadata
	DownloadURL string `json:"downloadUrl,omitempty"`
}
