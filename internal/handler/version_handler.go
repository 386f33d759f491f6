package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arkivet/document-api/internal/dto"
	"github.com/arkivet/document-api/internal/models"
	appErrors "github.com/arkivet/document-api/pkg/errors"
	"github.com/arkivet/document-api/pkg/response"
)

type versionService interface {
	CreateVersion(ctx context.Context, tenantID, documentID string, content []byte, changedBy, changeReason string) (*models.VersionInfo, error)
	ListVersions(ctx context.Context, tenantID, documentID string) ([]models.VersionInfo, error)
	RestoreVersion(ctx context.Context, tenantID, documentID, targetVersion, restoredBy string) (*models.VersionInfo, error)
}

// VersionHandler manages document version HTTP endpoints.
type VersionHandler struct {
	service versionService
}

// NewVersionHandler constructs the handler.
func NewVersionHandler(svc versionService) *VersionHandler {
	return &VersionHandler{service: svc}
}

// Create godoc
// @Summary Create a new document version
// @Tags Versions
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Document ID"
// @Param changeReason formData string false "Reason for the change"
// @Param file formData file true "New content"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/versions [post]
func (h *VersionHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateVersionRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid version payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}

	version, err := h.service.CreateVersion(c.Request.Context(), claims.TenantID, c.Param("id"), content, claims.UserID, req.ChangeReason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// List godoc
// @Summary List document versions newest first
// @Tags Versions
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/versions [get]
func (h *VersionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	versions, err := h.service.ListVersions(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, versions, nil)
}

// Restore godoc
// @Summary Restore an earlier version
// @Tags Versions
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.RestoreVersionRequest true "Target version"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/versions/restore [post]
func (h *VersionHandler) Restore(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RestoreVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Version == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version is required"))
		return
	}
	version, err := h.service.RestoreVersion(c.Request.Context(), claims.TenantID, c.Param("id"), req.Version, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, version, nil)
}
