package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/internal/service"
	appErrors "github.com/arkivet/document-api/pkg/errors"
	"github.com/arkivet/document-api/pkg/export"
	"github.com/arkivet/document-api/pkg/response"
)

type complianceService interface {
	GenerateReport(ctx context.Context, tenantID, documentID string) (*models.ComplianceReport, error)
	AuditDocument(ctx context.Context, tenantID, documentID string) (*models.AuditResult, error)
}

// ComplianceHandler exposes NSM and GDPR compliance endpoints.
type ComplianceHandler struct {
	service  complianceService
	exporter *export.PDFExporter
	metrics  *service.MetricsService
}

// NewComplianceHandler constructs the handler.
func NewComplianceHandler(svc complianceService, exporter *export.PDFExporter, metrics *service.MetricsService) *ComplianceHandler {
	return &ComplianceHandler{service: svc, exporter: exporter, metrics: metrics}
}

// Report godoc
// @Summary Generate a compliance report
// @Description Derives NSM classification, GDPR and retention findings
// from the document's current metadata.
// @Tags Compliance
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/compliance [get]
func (h *ComplianceHandler) Report(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	report, err := h.service.GenerateReport(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Audit godoc
// @Summary Audit a document
// @Description Scores the document against NSM and GDPR checks.
// @Tags Compliance
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/audit [post]
func (h *ComplianceHandler) Audit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.AuditDocument(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveAuditScore(result.Score)
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportReport godoc
// @Summary Export a compliance report as PDF
// @Tags Compliance
// @Produce application/pdf
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/compliance/export [get]
func (h *ComplianceHandler) ExportReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "exporter not configured"))
		return
	}
	report, err := h.service.GenerateReport(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	rows := make([]map[string]string, 0, len(report.Issues))
	for i, issue := range report.Issues {
		recommendation := ""
		if i < len(report.Recommendations) {
			recommendation = report.Recommendations[i]
		}
		rows = append(rows, map[string]string{
			"Issue":          issue,
			"Recommendation": recommendation,
		})
	}
	summary := []string{
		fmt.Sprintf("Document: %s", report.DocumentID),
		fmt.Sprintf("NSM classification: %s", report.NSMClassification),
		fmt.Sprintf("GDPR compliant: %s", strings.ToUpper(strconv.FormatBool(report.GDPRCompliant))),
		fmt.Sprintf("Retention status: %s", report.RetentionStatus),
		fmt.Sprintf("Audited: %s", report.LastAudit.Format(time.RFC3339)),
	}
	pdf, err := h.exporter.Render(export.Dataset{
		Headers: []string{"Issue", "Recommendation"},
		Rows:    rows,
	}, "Compliance Report", summary...)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "compliance-"+report.DocumentID+".pdf"))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
