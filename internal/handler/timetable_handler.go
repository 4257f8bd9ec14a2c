package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skolara-api/internal/models"
	"github.com/noah-isme/skolara-api/internal/service"
	appErrors "github.com/noah-isme/skolara-api/pkg/errors"
	"github.com/noah-isme/skolara-api/pkg/response"
)

// TimetableHandler manages period scheduling endpoints.
type TimetableHandler struct {
	service *service.TimetableService
	exports *service.ExportService
	metrics *service.MetricsService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(svc *service.TimetableService, exports *service.ExportService, metrics *service.MetricsService) *TimetableHandler {
	return &TimetableHandler{service: svc, exports: exports, metrics: metrics}
}

// Create godoc
// @Summary Schedule a period
// @Tags Timetables
// @Accept json
// @Produce json
// @Param X-Tenant-ID header string true "Tenant id or slug"
// @Param payload body service.CreatePeriodRequest true "Period payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req service.CreatePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	period, err := h.service.Create(c.Request.Context(), tenantID(c), req)
	if err != nil {
		var conflictErr *models.PeriodConflictError
		if errors.As(err, &conflictErr) {
			h.metrics.RecordConflict(conflictErr.Dimension)
		}
		response.Error(c, err)
		return
	}
	response.Created(c, period)
}

// ClassTimetable godoc
// @Summary Class timetable for a term
// @Tags Timetables
// @Produce json
// @Param classId path string true "Class ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/class/{classId} [get]
func (h *TimetableHandler) ClassTimetable(c *gin.Context) {
	periods, err := h.service.ClassTimetable(c.Request.Context(), tenantID(c), c.Param("classId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// TeacherTimetable godoc
// @Summary Teacher timetable for a term
// @Tags Timetables
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/teacher/{teacherId} [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	periods, err := h.service.TeacherTimetable(c.Request.Context(), tenantID(c), c.Param("teacherId"), c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}

// ExportClassTimetable godoc
// @Summary Export a class timetable as CSV or PDF
// @Tags Timetables
// @Produce text/csv,application/pdf
// @Param classId path string true "Class ID"
// @Param termId query string true "Term ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /timetables/class/{classId}/export [get]
func (h *TimetableHandler) ExportClassTimetable(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export is disabled"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.ClassTimetable(c.Request.Context(), tenantID(c), c.Param("classId"), c.Query("termId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

// Delete godoc
// @Summary Delete a period
// @Tags Timetables
// @Produce json
// @Param id path string true "Period ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), tenantID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
