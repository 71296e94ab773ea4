package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/domain/models"
	"github.com/mamadbah2/haccp/internal/service/reporting"
)

// TenantHeader carries the caller's tenant id.
const TenantHeader = "X-Tenant-ID"

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		verr   *models.ValidationError
		cerr   *models.ConflictError
		render *models.RenderError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, models.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid period, expected YYYY-MM"})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{"error": cerr.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &render):
		logger.Error("report rendering failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to render report"})
	case reporting.IsRetryable(err):
		logger.Error("upstream failure", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "temporarily unavailable, retry later"})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
