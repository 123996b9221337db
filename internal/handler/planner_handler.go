package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rehabplan/rehab-planner-api/internal/dto"
	"github.com/rehabplan/rehab-planner-api/internal/models"
	"github.com/rehabplan/rehab-planner-api/internal/service"
	appErrors "github.com/rehabplan/rehab-planner-api/pkg/errors"
	"github.com/rehabplan/rehab-planner-api/pkg/response"
)

type plannerOrchestrator interface {
	BuildMatrices(ctx context.Context, req dto.BuildMatricesRequest) (*dto.BuildMatricesResponse, error)
	GetMatrices(ctx context.Context, runID string) (*models.ConstraintMatrices, error)
	PatchAvailability(ctx context.Context, runID string, req dto.PatchMatrixRequest) (*models.ConstraintMatrices, error)
	ScheduleRun(ctx context.Context, runID string) (*dto.ScheduleResponse, error)
	ScheduleStateless(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error)
	Validate(ctx context.Context, req dto.ValidateRequest) (models.ValidationResult, error)
	RunHistory(ctx context.Context, date string) ([]models.ScheduleRun, error)
	ArchivedRun(ctx context.Context, runID string) (*models.ScheduleRun, []models.RunAssignment, error)
}

type scheduleExporter interface {
	ExportSchedule(ctx context.Context, runID, format, view string) (*dto.ExportResponse, error)
	Download(token string) (string, []byte, error)
}

// PlannerHandler exposes the planner pipeline over HTTP.
type PlannerHandler struct {
	planner plannerOrchestrator
	exports scheduleExporter
}

// NewPlannerHandler constructs the handler.
func NewPlannerHandler(planner *service.PlannerService, exports *service.ExportService) *PlannerHandler {
	return &PlannerHandler{planner: planner, exports: exports}
}

// BuildMatrices godoc
// @Summary Build constraint matrices for a target date
// @Description Normalizes therapist, patient and shift records and opens a scheduling run around the derived matrices.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.BuildMatricesRequest true "Build matrices payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /planner/matrices [post]
func (h *PlannerHandler) BuildMatrices(c *gin.Context) {
	var req dto.BuildMatricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid build matrices payload"))
		return
	}
	result, err := h.planner.BuildMatrices(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// GetMatrices godoc
// @Summary Get a run's constraint matrices
// @Tags Planner
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/runs/{id}/matrices [get]
func (h *PlannerHandler) GetMatrices(c *gin.Context) {
	matrices, err := h.planner.GetMatrices(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matrices)
}

// PatchMatrices godoc
// @Summary Flip one cell of a run's matrices
// @Description Edits a single availability bit or compatibility score; the next scheduling pass works on the edited matrices.
// @Tags Planner
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.PatchMatrixRequest true "Matrix patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/runs/{id}/matrices [patch]
func (h *PlannerHandler) PatchMatrices(c *gin.Context) {
	var req dto.PatchMatrixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid matrix patch payload"))
		return
	}
	matrices, err := h.planner.PatchAvailability(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, matrices)
}

// ScheduleRun godoc
// @Summary Run the assigner over a stored run's matrices
// @Description Produces a brand-new schedule each call; unscheduled patients are reported as data, never as an error.
// @Tags Planner
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/runs/{id}/schedule [post]
func (h *PlannerHandler) ScheduleRun(c *gin.Context) {
	result, err := h.planner.ScheduleRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Schedule godoc
// @Summary Run the assigner over caller-supplied matrices
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /planner/schedule [post]
func (h *PlannerHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.planner.ScheduleStateless(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Validate godoc
// @Summary Re-check a schedule against matrices
// @Description Violations come back as data; the endpoint itself only fails on malformed input.
// @Tags Planner
// @Accept json
// @Produce json
// @Param payload body dto.ValidateRequest true "Validate payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /planner/validate [post]
func (h *PlannerHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validate payload"))
		return
	}
	result, err := h.planner.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ListRuns godoc
// @Summary List persisted runs for one date
// @Tags Planner
// @Produce json
// @Param date query string true "Target date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /planner/runs [get]
func (h *PlannerHandler) ListRuns(c *gin.Context) {
	runs, err := h.planner.RunHistory(c.Request.Context(), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs)
}

// GetRun godoc
// @Summary Get one persisted run with its assignment rows
// @Tags Planner
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /planner/runs/{id} [get]
func (h *PlannerHandler) GetRun(c *gin.Context) {
	run, assignments, err := h.planner.ArchivedRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ArchivedRunResponse{Run: run, Assignments: assignments})
}

// Export godoc
// @Summary Export a run's schedule as CSV or PDF
// @Tags Planner
// @Produce json
// @Param id path string true "Run ID"
// @Param format query string true "csv or pdf"
// @Param view query string false "list, patients or therapists"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /planner/runs/{id}/export [get]
func (h *PlannerHandler) Export(c *gin.Context) {
	result, err := h.exports.ExportSchedule(c.Request.Context(), c.Param("id"), c.Query("format"), c.Query("view"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Download godoc
// @Summary Download an exported schedule file
// @Tags Planner
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /planner/exports/download [get]
func (h *PlannerHandler) Download(c *gin.Context) {
	filename, content, err := h.exports.Download(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentTypeFor(filename), content)
}

func contentTypeFor(filename string) string {
	if len(filename) > 4 && filename[len(filename)-4:] == ".pdf" {
		return "application/pdf"
	}
	return "text/csv"
}
