package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/archive"
	"github.com/mamadbah2/haccp/internal/domain/models"
)

const textContentType = "text/plain; charset=utf-8"

// ReportService produces and serves monthly reports.
type ReportService interface {
	Generate(ctx context.Context, tenantID string, period models.Period) (models.Document, error)
	Download(ctx context.Context, tenantID string, period models.Period) ([]byte, error)
}

// ReportHandler exposes report generation and download.
type ReportHandler struct {
	svc    ReportService
	logger *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(svc ReportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, logger: logger}
}

// Generate synthesizes and publishes the report of the period, then returns it.
func (h *ReportHandler) Generate(c *gin.Context) {
	period, err := models.ParsePeriod(c.Param("period"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	doc, err := h.svc.Generate(c.Request.Context(), c.GetHeader(TenantHeader), period)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Header("X-Report-Lines", fmt.Sprint(doc.Lines))
	c.Data(http.StatusOK, textContentType, doc.Content)
}

// Download returns the archived report of the period.
func (h *ReportHandler) Download(c *gin.Context) {
	period, err := models.ParsePeriod(c.Param("period"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	data, err := h.svc.Download(c.Request.Context(), c.GetHeader(TenantHeader), period)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", period.String()+archive.Suffix))
	c.Data(http.StatusOK, textContentType, data)
}
