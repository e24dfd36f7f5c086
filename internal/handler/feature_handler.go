package handler

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cityzn/cityzn-backend-go/internal/models"
	"github.com/cityzn/cityzn-backend-go/internal/service"
	"github.com/cityzn/cityzn-backend-go/pkg/response"
)

// FeatureProvider builds prediction-time features
type FeatureProvider interface {
	ParseTarget(value string) (time.Time, error)
	Features(ctx context.Context, target time.Time, sample int) (*models.FeatureMatrix, error)
	Schema(ctx context.Context) (*models.CategorySchema, error)
}

// FeatureQuery are the query parameters of GET /api/v1/features
type FeatureQuery struct {
	Datetime string `form:"datetime" binding:"required"`
	Sample   int    `form:"sample" binding:"gte=0"`
}

// FeatureHandler handles HTTP requests for prediction features
type FeatureHandler struct {
	features FeatureProvider
}

// NewFeatureHandler creates a new feature handler
func NewFeatureHandler(features FeatureProvider) *FeatureHandler {
	return &FeatureHandler{
		features: features,
	}
}

// GetFeatures handles GET /api/v1/features
func (h *FeatureHandler) GetFeatures(c *gin.Context) {
	var query FeatureQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	target, err := h.features.ParseTarget(query.Datetime)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	matrix, err := h.features.Features(c.Request.Context(), target, query.Sample)
	if errors.Is(err, service.ErrNoDataset) {
		response.ServiceUnavailable(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, matrix)
}

// GetSchema handles GET /api/v1/schema
func (h *FeatureHandler) GetSchema(c *gin.Context) {
	schema, err := h.features.Schema(c.Request.Context())
	if errors.Is(err, service.ErrNoDataset) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, schema)
}
