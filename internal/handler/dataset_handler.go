package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/repository"
	"github.com/cityzn/cityzn-backend-go/pkg/response"
)

// SummaryReader returns the latest completed build
type SummaryReader interface {
	Summary(ctx context.Context) (*models.PipelineRun, error)
}

// EdgeReader returns the static features of one edge
type EdgeReader interface {
	Edge(ctx context.Context, osmID int64) (*models.EdgeFeatures, error)
}

// DatasetHandler handles HTTP requests for the built dataset
type DatasetHandler struct {
	runs  SummaryReader
	edges EdgeReader
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(runs SummaryReader, edges EdgeReader) *DatasetHandler {
	return &DatasetHandler{
		runs:  runs,
		edges: edges,
	}
}

// GetSummary handles GET /api/v1/dataset/summary
func (h *DatasetHandler) GetSummary(c *gin.Context) {
	run, err := h.runs.Summary(c.Request.Context())
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "No dataset has been built yet")
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, gin.H{
		"run_id":       run.ID,
		"completed_at": run.CompletedAt,
		"summary":      run.Summary,
	})
}

// GetEdge handles GET /api/v1/edges/:id
func (h *DatasetHandler) GetEdge(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid edge ID")
		return
	}

	edge, err := h.edges.Edge(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		response.NotFound(c, "Edge not found")
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, edge)
}
