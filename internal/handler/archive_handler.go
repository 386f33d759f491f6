package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arkivet/document-api/internal/dto"
	"github.com/arkivet/document-api/internal/models"
	appErrors "github.com/arkivet/document-api/pkg/errors"
	"github.com/arkivet/document-api/pkg/response"
)

type archiveService interface {
	UpsertPolicy(ctx context.Context, policy *models.ArchivePolicy, updatedBy string) error
	GetPolicy(ctx context.Context, tenantID string) (*models.ArchivePolicy, error)
	ArchiveDocument(ctx context.Context, tenantID, documentID, archivedBy string) (*models.ArchiveRecord, error)
	GetRecord(ctx context.Context, tenantID, recordID string) (*models.ArchiveRecord, error)
}

// ArchiveHandler manages archive policy and archival HTTP endpoints.
type ArchiveHandler struct {
	service archiveService
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(svc archiveService) *ArchiveHandler {
	return &ArchiveHandler{service: svc}
}

// UpsertPolicy godoc
// @Summary Set the tenant archive policy
// @Description Replaces the tenant's policy wholesale.
// @Tags Archives
// @Accept json
// @Produce json
// @Param payload body dto.UpsertArchivePolicyRequest true "Archive policy"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /archive/policy [put]
func (h *ArchiveHandler) UpsertPolicy(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpsertArchivePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid policy payload"))
		return
	}
	if req.RetentionDays <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "retentionDays must be positive"))
		return
	}
	policy := &models.ArchivePolicy{
		TenantID:           claims.TenantID,
		RetentionDays:      req.RetentionDays,
		CompressionEnabled: req.CompressionEnabled,
		EncryptionRequired: req.EncryptionRequired,
		DeleteAfterArchive: req.DeleteAfterArchive,
		ArchiveFormat:      models.ArchiveFormat(strings.ToLower(req.ArchiveFormat)),
	}
	if err := h.service.UpsertPolicy(c.Request.Context(), policy, claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// GetPolicy godoc
// @Summary Get the tenant archive policy
// @Tags Archives
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /archive/policy [get]
func (h *ArchiveHandler) GetPolicy(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	policy, err := h.service.GetPolicy(c.Request.Context(), claims.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, policy, nil)
}

// Archive godoc
// @Summary Archive a document
// @Description Marks the document archived and queues artifact
// generation under the tenant policy.
// @Tags Archives
// @Accept json
// @Produce json
// @Param payload body dto.ArchiveDocumentRequest true "Document reference"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /archive [post]
func (h *ArchiveHandler) Archive(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ArchiveDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DocumentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "documentId is required"))
		return
	}
	record, err := h.service.ArchiveDocument(c.Request.Context(), claims.TenantID, req.DocumentID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, record, nil)
}

// GetRecord godoc
// @Summary Get an archive record
// @Tags Archives
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /archive/records/{id} [get]
func (h *ArchiveHandler) GetRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.service.GetRecord(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
