package dto

// CreateVersionRequest carries the metadata fields of a multipart
// version upload; the new content travels as the form file.
type CreateVersionRequest struct {
	ChangeReason string `form:"changeReason" json:"changeReason"`
}

// RestoreVersionRequest moves the document pointer back to an earlier
// version.
type RestoreVersionRequest struct {
	Version string `json:"version" validate:"required"`
}
