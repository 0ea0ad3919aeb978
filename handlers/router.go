package handlers

import (
	"net/http"

	"github.com/ammiranda/taxonomy_service/internal/metrics"
	"github.com/ammiranda/taxonomy_service/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires middleware and routes onto a new gin engine
func NewRouter(svc *service.TaxonomyService, logger *zap.Logger, collector *metrics.Collector) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(logger), Metrics(collector))

	genreHandler := NewGenreHandler(svc)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"categories": svc.Store().Len(),
		})
	})
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	// API routes
	api := r.Group("/api")
	{
		api.GET("/genres", genreHandler.GetGenres)
		api.GET("/genres/flat", genreHandler.GetFlatGenres)
		api.GET("/genres/:id", genreHandler.GetGenre)
		api.POST("/genres", genreHandler.CreateGenre)
		api.GET("/network/graph", genreHandler.GetNetworkGraph)
	}

	return r
}
