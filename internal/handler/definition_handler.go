package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/report-portal-api/internal/dto"
	"github.com/noah-isme/report-portal-api/internal/models"
	"github.com/noah-isme/report-portal-api/internal/service"
	appErrors "github.com/noah-isme/report-portal-api/pkg/errors"
	"github.com/noah-isme/report-portal-api/pkg/response"
)

// DefinitionHandler handles report definition endpoints.
type DefinitionHandler struct {
	service *service.DefinitionService
}

// NewDefinitionHandler constructs a definition handler.
func NewDefinitionHandler(svc *service.DefinitionService) *DefinitionHandler {
	return &DefinitionHandler{service: svc}
}

// List godoc
// @Summary List report definitions
// @Tags Definitions
// @Produce json
// @Param status query string false "Filter by status"
// @Param department_id query string false "Filter by department"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /definitions [get]
func (h *DefinitionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.DefinitionFilter
	if status := c.Query("status"); status != "" {
		typed := models.DefinitionStatus(status)
		filter.Status = &typed
	}
	filter.DepartmentID = c.Query("department_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	definitions, pagination, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, definitions, pagination)
}

// Get godoc
// @Summary Get report definition by id
// @Tags Definitions
// @Produce json
// @Param id path string true "Definition ID"
// @Success 200 {object} response.Envelope
// @Router /definitions/{id} [get]
func (h *DefinitionHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	definition, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	detail := dto.DefinitionDetail{
		ReportDefinition: *definition,
		Defaults:         definition.RenderableDefaults(),
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create report definition
// @Tags Definitions
// @Accept json
// @Produce json
// @Param payload body service.CreateDefinitionRequest true "Definition payload"
// @Success 201 {object} response.Envelope
// @Router /definitions [post]
func (h *DefinitionHandler) Create(c *gin.Context) {
	var req service.CreateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	definition, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, definition)
}

// Update godoc
// @Summary Update report definition
// @Tags Definitions
// @Accept json
// @Produce json
// @Param id path string true "Definition ID"
// @Param payload body service.UpdateDefinitionRequest true "Definition payload"
// @Success 200 {object} response.Envelope
// @Router /definitions/{id} [put]
func (h *DefinitionHandler) Update(c *gin.Context) {
	var req service.UpdateDefinitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	definition, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, definition, nil)
}

// Delete godoc
// @Summary Delete report definition
// @Tags Definitions
// @Produce json
// @Param id path string true "Definition ID"
// @Success 204 {object} response.Envelope
// @Router /definitions/{id} [delete]
func (h *DefinitionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
