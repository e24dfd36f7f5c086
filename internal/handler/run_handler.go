package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/repository"
	"github.com/cityzn/cityzn-backend-go/internal/service"
	"github.com/cityzn/cityzn-backend-go/pkg/response"
)

// RunService starts dataset builds and reports on them
type RunService interface {
	Start(ctx context.Context) (*models.PipelineRun, error)
	Run(ctx context.Context, id string) (*models.PipelineRun, error)
	Runs(ctx context.Context, limit, offset int) ([]*models.PipelineRun, error)
}

// RunHandler handles HTTP requests for pipeline runs
type RunHandler struct {
	runs RunService
	// builds outlive the request that started them
	buildCtx context.Context
}

// NewRunHandler creates a new run handler. Builds started through it stop
// when buildCtx is cancelled.
func NewRunHandler(runs RunService, buildCtx context.Context) *RunHandler {
	return &RunHandler{
		runs:     runs,
		buildCtx: buildCtx,
	}
}

// StartRun handles POST /api/v1/runs
func (h *RunHandler) StartRun(c *gin.Context) {
	run, err := h.runs.Start(h.buildCtx)
	if errors.Is(err, service.ErrBuildInProgress) {
		response.Conflict(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Accepted(c, run)
}

// GetRun handles GET /api/v1/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.runs.Run(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "Run not found")
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, run)
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		response.BadRequest(c, "Invalid limit")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.BadRequest(c, "Invalid offset")
		return
	}

	runs, err := h.runs.Runs(c.Request.Context(), limit, offset)
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"runs":   runs,
		"limit":  limit,
		"offset": offset,
	})
}
