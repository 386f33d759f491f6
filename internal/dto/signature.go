package dto

// SignerRequest names one requested signatory.
type SignerRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}

// InitiateSignatureRequest starts a signing flow for a document.
type InitiateSignatureRequest struct {
	DocumentID string          `json:"documentId" validate:"required"`
	Provider   string          `json:"provider" validate:"required"`
	Level      string          `json:"level" validate:"required,oneof=simple advanced qualified"`
	Signers    []SignerRequest `json:"signers" validate:"required,min=1,dive"`
}

// CompleteSignatureRequest records the terminal outcome reported by the
// provider.
type CompleteSignatureRequest struct {
	Status string `json:"status" validate:"required,oneof=completed declined failed"`
}
