package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/internal/service"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
	"github.com/noah-isme/skolara-api/pkg/response"
)

// TenantHandler exposes the platform back office for managing schools.
type TenantHandler struct {
	service *service.TenantService
}

// NewTenantHandler constructs handler.
func NewTenantHandler(svc *service.TenantService) *TenantHandler {
	return &TenantHandler{service: svc}
}

// List godoc
// @Summary List tenants
// @Tags Admin
// @Produce json
// @Param search query string false "Search by name or slug"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	var filter models.TenantFilter
	filter.Search = c.Query("search")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

	tenants, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenants, pagination)
}

// Create godoc
// @Summary Onboard a school
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body service.CreateTenantRequest true "Tenant payload"
// @Success 201 {object} response.Envelope
// @Router /admin/tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	var req service.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenant, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tenant)
}

// SetActive godoc
// @Summary Suspend or restore a tenant
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Tenant ID"
// @Param payload body handler.setTenantActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /admin/tenants/{id}/active [put]
func (h *TenantHandler) SetActive(c *gin.Context) {
	var req setTenantActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	tenant, err := h.service.SetActive(c.Request.Context(), c.Param("id"), req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tenant, nil)
}

type setTenantActiveRequest struct {
	Active bool `json:"active"`
}
