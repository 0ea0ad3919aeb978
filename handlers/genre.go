package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ammiranda/taxonomy_service/models"
	"github.com/ammiranda/taxonomy_service/repository"
	"github.com/ammiranda/taxonomy_service/service"
	"github.com/ammiranda/taxonomy_service/taxonomy"

	"github.com/gin-gonic/gin"
)

const jsonContentType = "application/json; charset=utf-8"

// GenreHandler handles genre and network graph HTTP requests
type GenreHandler struct {
	svc *service.TaxonomyService
}

// NewGenreHandler creates a new GenreHandler instance
func NewGenreHandler(svc *service.TaxonomyService) *GenreHandler {
	return &GenreHandler{
		svc: svc,
	}
}

// GetGenres returns the nested taxonomy
func (h *GenreHandler) GetGenres(c *gin.Context) {
	var q models.TaxonomyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := h.svc.TaxonomyJSON(c.Request.Context(), q.IncludeInactive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, jsonContentType, body)
}

// GetFlatGenres returns every visible genre as a flat list
func (h *GenreHandler) GetFlatGenres(c *gin.Context) {
	var q models.TaxonomyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := h.svc.FlatJSON(c.Request.Context(), q.IncludeInactive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, jsonContentType, body)
}

// GetGenre returns the subtree rooted at :id
func (h *GenreHandler) GetGenre(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid genre id"})
		return
	}
	var q models.TaxonomyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := h.svc.NodeJSON(c.Request.Context(), id, q.IncludeInactive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, jsonContentType, body)
}

// CreateGenre adds a genre to the taxonomy
func (h *GenreHandler) CreateGenre(c *gin.Context) {
	var req models.CreateGenreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Validate the request
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.svc.CreateCategory(c.Request.Context(), service.CreateCategoryInput{
		Name:         req.Name,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active(),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewGenre(&taxonomy.TreeNode{Category: created}))
}

// GetNetworkGraph returns the genre/document graph
func (h *GenreHandler) GetNetworkGraph(c *gin.Context) {
	var q models.GraphQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := q.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	body, err := h.svc.GraphJSON(c.Request.Context(), q.GenreID, q.IncludeInactive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, jsonContentType, body)
}

// ErrorStatus maps a service error to an HTTP status and a client-safe
// message. Internal failures are reported without detail.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, taxonomy.ErrNotFound):
		return http.StatusNotFound, "genre not found"
	case errors.Is(err, taxonomy.ErrUnknownParent):
		return http.StatusNotFound, "parent genre not found"
	case errors.Is(err, taxonomy.ErrDuplicateID),
		errors.Is(err, taxonomy.ErrPathCollision),
		errors.Is(err, repository.ErrDuplicateGenre):
		return http.StatusConflict, err.Error()
	case errors.Is(err, taxonomy.ErrDepthExceeded),
		errors.Is(err, taxonomy.ErrInvalidPath),
		errors.Is(err, repository.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError responds with the mapped status; the request log carries the
// cause of internal failures
func writeError(c *gin.Context, err error) {
	status, msg := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}
