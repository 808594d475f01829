package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-portal-api/internal/middleware"
	"github.com/noah-isme/report-portal-api/internal/service"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
	"github.com/noah-isme/report-portal-api/pkg/response"
)

// AggregationHandler handles aggregation and export endpoints.
type AggregationHandler struct {
	service *service.AggregationService
}

// NewAggregationHandler constructs an aggregation handler.
func NewAggregationHandler(svc *service.AggregationService) *AggregationHandler {
	return &AggregationHandler{service: svc}
}

// Aggregate godoc
// @Summary Aggregate numeric fields of a definition
// @Description Sums and averages per numeric field over submitted and approved submissions
// @Tags Aggregation
// @Produce json
// @Param definition_id query string true "Definition ID"
// @Param department_id query string false "Restrict to one department"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /aggregation [get]
func (h *AggregationHandler) Aggregate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	definitionID := c.Query("definition_id")
	if definitionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "definition_id is required"))
		return
	}

	start := time.Now()
	result, cacheHit, err := h.service.Aggregate(c.Request.Context(), claims, definitionID, c.Query("department_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, result, nil, meta)
}

// Export godoc
// @Summary Export aggregate table
// @Description Renders the aggregate table as CSV or PDF
// @Tags Aggregation
// @Produce text/csv
// @Produce application/pdf
// @Param definition_id query string true "Definition ID"
// @Param department_id query string false "Restrict to one department"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /aggregation/export [get]
func (h *AggregationHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	definitionID := c.Query("definition_id")
	if definitionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "definition_id is required"))
		return
	}

	format := c.DefaultQuery("format", "csv")
	out, contentType, err := h.service.Export(c.Request.Context(), claims, definitionID, c.Query("department_id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	ext := "csv"
	if format == "pdf" {
		ext = "pdf"
	}
	filename := fmt.Sprintf("aggregation-%s-%s.%s", definitionID, time.Now().UTC().Format("20060102"), ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, out)
}
