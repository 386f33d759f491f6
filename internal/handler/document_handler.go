package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/arkivet/document-api/internal/dto"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/internal/service"
	appErrors "github.com/arkivet/document-api/pkg/errors"
	"github.com/arkivet/document-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, input service.UploadInput) (*models.DocumentMetadata, error)
	Get(ctx context.Context, tenantID, id string) (*models.DocumentMetadata, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentMetadata, error)
	Download(ctx context.Context, tenantID, id string) (*service.DownloadResult, error)
	GenerateDownloadURL(ctx context.Context, tenantID, id string) (*service.DownloadURL, error)
	DownloadByToken(ctx context.Context, tenantID, token string) (*service.DownloadResult, error)
	Delete(ctx context.Context, tenantID, id, deletedBy string) error
}

// DocumentHandler manages document lifecycle HTTP endpoints.
type DocumentHandler struct {
	service documentService
	metrics *service.MetricsService
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentService, metrics *service.MetricsService) *DocumentHandler {
	return &DocumentHandler{service: svc, metrics: metrics}
}

// Upload godoc
// @Summary Upload a document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param classification formData string false "NSM classification"
// @Param tags formData string false "Tags as JSON array"
// @Param customFields formData string false "Custom fields as JSON object"
// @Param file formData file true "Document content"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
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

	tags, err := parseTags(req.Tags)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tags must be a JSON array of strings"))
		return
	}
	customFields, err := parseCustomFields(req.CustomFields)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "customFields must be a JSON object"))
		return
	}

	input := service.UploadInput{
		Filename:       fileHeader.Filename,
		MimeType:       fileHeader.Header.Get("Content-Type"),
		Content:        content,
		UploadedBy:     claims.UserID,
		TenantID:       claims.TenantID,
		Classification: models.Classification(strings.ToUpper(strings.TrimSpace(req.Classification))),
		Tags:           tags,
		CustomFields:   customFields,
	}
	doc, err := h.service.Upload(c.Request.Context(), input)
	h.observe("upload", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List documents
// @Tags Documents
// @Produce json
// @Param classification query string false "Classification filter"
// @Param status query string false "Status filter"
// @Param uploadedBy query string false "Uploader filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var filter dto.DocumentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid filter"))
		return
	}
	docs, err := h.service.List(c.Request.Context(), models.DocumentFilter{
		TenantID:       claims.TenantID,
		Classification: models.Classification(strings.ToUpper(filter.Classification)),
		Status:         models.DocumentStatus(filter.Status),
		UploadedBy:     filter.UploadedBy,
		Limit:          filter.Limit,
		Offset:         filter.Offset,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Get godoc
// @Summary Get document metadata
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doc, err := h.service.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	signed, err := h.service.GenerateDownloadURL(c.Request.Context(), claims.TenantID, doc.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DocumentResponse{
		DocumentMetadata: *doc,
		DownloadURL:      fmt.Sprintf("%s/download?token=%s", c.Request.URL.Path, url.QueryEscape(signed.Token)),
	}, nil)
}

// Download godoc
// @Summary Download document content
// @Description Streams the verified content. A signed token from the
// download-url endpoint may replace the Authorization header flow.
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Param token query string false "Signed download token"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/download [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var (
		result *service.DownloadResult
		err    error
	)
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		result, err = h.service.DownloadByToken(c.Request.Context(), claims.TenantID, token)
	} else {
		result, err = h.service.Download(c.Request.Context(), claims.TenantID, c.Param("id"))
	}
	h.observe("download", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Document.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.Document.MimeType, result.Content)
}

// DownloadURL godoc
// @Summary Issue a signed download URL
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/download-url [get]
func (h *DocumentHandler) DownloadURL(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	url, err := h.service.GenerateDownloadURL(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, url, nil)
}

// Delete godoc
// @Summary Delete a document
// @Description Removes content and metadata once the retention gate
// allows deletion.
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	err := h.service.Delete(c.Request.Context(), claims.TenantID, c.Param("id"), claims.UserID)
	h.observe("delete", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *DocumentHandler) observe(operation string, err error) {
	if h.metrics != nil {
		h.metrics.ObserveDocumentOperation(operation, err)
	}
}

func parseTags(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func parseCustomFields(raw string) (models.FieldMap, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var fields models.FieldMap
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
