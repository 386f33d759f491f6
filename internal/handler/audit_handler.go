package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkivet/document-api/internal/models"
	appErrors "github.com/arkivet/document-api/pkg/errors"
	"github.com/arkivet/document-api/pkg/response"
)

type auditTrailStore interface {
	ListByResource(ctx context.Context, tenantID, resource, resourceID string) ([]models.AuditLog, error)
}

// AuditHandler exposes the append-only audit trail.
type AuditHandler struct {
	store auditTrailStore
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(store auditTrailStore) *AuditHandler {
	return &AuditHandler{store: store}
}

// DocumentTrail godoc
// @Summary List the audit trail for a document
// @Tags Compliance
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Router /documents/{id}/audit-trail [get]
func (h *AuditHandler) DocumentTrail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entries, err := h.store.ListByResource(c.Request.Context(), claims.TenantID, "document", c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}
