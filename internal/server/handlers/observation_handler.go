package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/domain/models"
)

// ObservationService appends validated observations to the log and lists recent ones.
type ObservationService interface {
	Ingest(ctx context.Context, tenantID string, kind models.ObservationKind, in models.ObservationInput) (models.Observation, error)
	Recent(ctx context.Context, tenantID string, kind models.ObservationKind, limit int) ([]models.Observation, error)
}

// ObservationHandler exposes observation intake over HTTP.
type ObservationHandler struct {
	svc    ObservationService
	logger *zap.Logger
}

// NewObservationHandler constructs the HTTP handler adapter.
func NewObservationHandler(svc ObservationService, logger *zap.Logger) *ObservationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ObservationHandler{svc: svc, logger: logger}
}

// Create records one observation of the kind named in the path.
func (h *ObservationHandler) Create(c *gin.Context) {
	var in models.ObservationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.logger.Warn("invalid observation payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	obs, err := h.svc.Ingest(c.Request.Context(), c.GetHeader(TenantHeader), models.ObservationKind(c.Param("kind")), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, obs)
}

// List returns the latest observations of the kind named in the path, most
// recent first. The optional limit query parameter bounds the result.
func (h *ObservationHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer", "field": "limit"})
			return
		}
		limit = n
	}

	observations, err := h.svc.Recent(c.Request.Context(), c.GetHeader(TenantHeader), models.ObservationKind(c.Param("kind")), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, observations)
}
