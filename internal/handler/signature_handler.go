package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arkivet/document-api/internal/dto"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/internal/service"
	appErrors "github.com/arkivet/document-api/pkg/errors"
	"github.com/arkivet/document-api/pkg/response"
)

type signatureService interface {
	Initiate(ctx context.Context, input service.InitiateSignatureInput) (*models.SignatureRequest, error)
	Get(ctx context.Context, tenantID, id string) (*models.SignatureRequest, error)
	Complete(ctx context.Context, tenantID, id, status string) (*models.SignatureRequest, error)
}

// SignatureHandler manages e-signature HTTP endpoints.
type SignatureHandler struct {
	service signatureService
}

// NewSignatureHandler constructs the handler.
func NewSignatureHandler(svc signatureService) *SignatureHandler {
	return &SignatureHandler{service: svc}
}

// Initiate godoc
// @Summary Start a signing flow
// @Tags Signatures
// @Accept json
// @Produce json
// @Param payload body dto.InitiateSignatureRequest true "Signature request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /signatures [post]
func (h *SignatureHandler) Initiate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.InitiateSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid signature payload"))
		return
	}
	if req.DocumentID == "" || len(req.Signers) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "documentId and signers are required"))
		return
	}
	signers := make([]models.Signer, 0, len(req.Signers))
	for _, s := range req.Signers {
		signers = append(signers, models.Signer{Name: s.Name, Email: s.Email, Role: s.Role})
	}
	request, err := h.service.Initiate(c.Request.Context(), service.InitiateSignatureInput{
		DocumentID:  req.DocumentID,
		TenantID:    claims.TenantID,
		Provider:    models.SignatureProvider(strings.ToLower(req.Provider)),
		Level:       models.SignatureLevel(strings.ToLower(req.Level)),
		Signers:     signers,
		RequestedBy: claims.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get a signature request
// @Tags Signatures
// @Produce json
// @Param id path string true "Signature request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /signatures/{id} [get]
func (h *SignatureHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	request, err := h.service.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Complete godoc
// @Summary Record the signing outcome
// @Tags Signatures
// @Accept json
// @Produce json
// @Param id path string true "Signature request ID"
// @Param payload body dto.CompleteSignatureRequest true "Terminal status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /signatures/{id}/complete [post]
func (h *SignatureHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CompleteSignatureRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status is required"))
		return
	}
	request, err := h.service.Complete(c.Request.Context(), claims.TenantID, c.Param("id"), strings.ToLower(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
