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

type templateService interface {
	Create(ctx context.Context, tmpl *models.Template, createdBy string) (*models.Template, error)
	Get(ctx context.Context, tenantID, id string) (*models.Template, error)
	List(ctx context.Context, tenantID, category string) ([]models.Template, error)
	Render(ctx context.Context, tenantID, id string, values map[string]string) (string, error)
}

// TemplateHandler manages document template HTTP endpoints.
type TemplateHandler struct {
	service templateService
}

// NewTemplateHandler constructs the handler.
func NewTemplateHandler(svc templateService) *TemplateHandler {
	return &TemplateHandler{service: svc}
}

// Create godoc
// @Summary Create a document template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body dto.CreateTemplateRequest true "Template definition"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid template payload"))
		return
	}
	fields := make(models.TemplateFieldList, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, models.TemplateField{
			Name:       f.Name,
			Type:       models.FieldType(strings.ToLower(f.Type)),
			Required:   f.Required,
			Validation: f.Validation,
			Options:    f.Options,
		})
	}
	tmpl, err := h.service.Create(c.Request.Context(), &models.Template{
		Name:         req.Name,
		Category:     req.Category,
		TenantID:     claims.TenantID,
		Fields:       fields,
		Layout:       req.Layout,
		NSMRequired:  req.NSMRequired,
		GDPRRequired: req.GDPRRequired,
	}, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tmpl)
}

// List godoc
// @Summary List templates
// @Tags Templates
// @Produce json
// @Param category query string false "Category filter"
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	templates, err := h.service.List(c.Request.Context(), claims.TenantID, strings.TrimSpace(c.Query("category")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Get godoc
// @Summary Get a template
// @Tags Templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/{id} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	tmpl, err := h.service.Get(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tmpl, nil)
}

// Render godoc
// @Summary Render a template with field values
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body dto.RenderTemplateRequest true "Field values"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/{id}/render [post]
func (h *TemplateHandler) Render(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RenderTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid render payload"))
		return
	}
	content, err := h.service.Render(c.Request.Context(), claims.TenantID, c.Param("id"), req.Values)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RenderTemplateResponse{
		TemplateID: c.Param("id"),
		Content:    content,
	}, nil)
}
