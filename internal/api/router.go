package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cityzn/cityzn-backend-go/internal/config"
	"github.com/cityzn/cityzn-backend-go/internal/handler"
	"github.com/cityzn/cityzn-backend-go/internal/logger"
	"github.com/cityzn/cityzn-backend-go/internal/metrics"
	"github.com/cityzn/cityzn-backend-go/internal/middleware"
)

// Dependencies are the handlers and shared components mounted by the router
type Dependencies struct {
	Runs     *handler.RunHandler
	Dataset  *handler.DatasetHandler
	Features *handler.FeatureHandler

	// Limiter throttles the features endpoint; nil disables throttling
	Limiter *middleware.RateLimiter
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

// SetupRouter builds the HTTP engine
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	log := logger.OrNop(deps.Log)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Server.MaxMemory
	r.Use(middleware.Recovery(log), middleware.Logger(log))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Cityzn dataset API is running",
		})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	throttle := func(c *gin.Context) { c.Next() }
	if deps.Limiter != nil {
		throttle = deps.Limiter.Handler()
	}

	v1 := r.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.POST("", middleware.Auth(cfg.Server.JWTSecret), deps.Runs.StartRun)
			runs.GET("", deps.Runs.ListRuns)
			runs.GET("/:id", deps.Runs.GetRun)
		}

		v1.GET("/dataset/summary", deps.Dataset.GetSummary)
		v1.GET("/edges/:id", deps.Dataset.GetEdge)

		v1.GET("/features", throttle, deps.Features.GetFeatures)
		v1.GET("/schema", deps.Features.GetSchema)
	}

	return r
}
