// Package lambda serves the taxonomy API from API Gateway proxy events.
package lambda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/ammiranda/taxonomy_service/handlers"
	"github.com/ammiranda/taxonomy_service/models"
	"github.com/ammiranda/taxonomy_service/service"
	"github.com/ammiranda/taxonomy_service/taxonomy"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

const genresPath = "/api/genres"

// Handler represents the Lambda handler with its dependencies
type Handler struct {
	svc    *service.TaxonomyService
	logger *zap.Logger
}

// NewHandler creates a new Handler over svc
func NewHandler(svc *service.TaxonomyService, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

// Handle processes API Gateway events
func (h *Handler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := h.route(ctx, request)
	h.logger.Info("request handled",
		zap.String("request_id", request.RequestContext.RequestID),
		zap.String("method", request.HTTPMethod),
		zap.String("path", request.Path),
		zap.Int("status", resp.StatusCode))
	return resp, nil
}

func (h *Handler) route(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	path := strings.TrimSuffix(request.Path, "/")

	// Route the request based on HTTP method and path
	switch {
	case request.HTTPMethod == http.MethodGet && path == "/health":
		return jsonResponse(http.StatusOK, map[string]any{
			"status":     "healthy",
			"categories": h.svc.Store().Len(),
		})
	case request.HTTPMethod == http.MethodGet && path == genresPath:
		return h.handleGetGenres(ctx, request)
	case request.HTTPMethod == http.MethodPost && path == genresPath:
		return h.handleCreateGenre(ctx, request)
	case request.HTTPMethod == http.MethodGet && path == genresPath+"/flat":
		return h.handleGetFlatGenres(ctx, request)
	case request.HTTPMethod == http.MethodGet && isGenrePath(path):
		return h.handleGetGenre(ctx, request, strings.TrimPrefix(path, genresPath+"/"))
	case request.HTTPMethod == http.MethodGet && path == "/api/network/graph":
		return h.handleGetNetworkGraph(ctx, request)
	default:
		return errorResponse(http.StatusNotFound, "not found")
	}
}

// isGenrePath matches /api/genres/{id} with exactly one segment after the prefix
func isGenrePath(path string) bool {
	rest, ok := strings.CutPrefix(path, genresPath+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}

func (h *Handler) handleGetGenres(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	includeInactive, err := boolParam(request, "include_inactive")
	if err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}
	body, err := h.svc.TaxonomyJSON(ctx, includeInactive)
	return h.payload(body, err)
}

func (h *Handler) handleGetFlatGenres(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	includeInactive, err := boolParam(request, "include_inactive")
	if err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}
	body, err := h.svc.FlatJSON(ctx, includeInactive)
	return h.payload(body, err)
}

func (h *Handler) handleGetGenre(ctx context.Context, request events.APIGatewayProxyRequest, rawID string) events.APIGatewayProxyResponse {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return errorResponse(http.StatusBadRequest, "invalid genre id")
	}
	includeInactive, err := boolParam(request, "include_inactive")
	if err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}
	body, err := h.svc.NodeJSON(ctx, id, includeInactive)
	return h.payload(body, err)
}

func (h *Handler) handleGetNetworkGraph(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var q models.GraphQuery
	if raw := request.QueryStringParameters["genre_id"]; raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return errorResponse(http.StatusBadRequest, "invalid genre_id")
		}
		q.GenreID = &id
	}
	includeInactive, err := boolParam(request, "include_inactive")
	if err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}
	q.IncludeInactive = includeInactive
	if err := q.Validate(); err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	body, err := h.svc.GraphJSON(ctx, q.GenreID, q.IncludeInactive)
	return h.payload(body, err)
}

func (h *Handler) handleCreateGenre(ctx context.Context, request events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var req models.CreateGenreRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		return errorResponse(http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
	}

	// Validate the request
	if err := req.Validate(); err != nil {
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	created, err := h.svc.CreateCategory(ctx, service.CreateCategoryInput{
		Name:         req.Name,
		ParentID:     req.ParentID,
		DisplayOrder: req.DisplayOrder,
		Active:       req.Active(),
	})
	if err != nil {
		return h.failure(err)
	}
	return jsonResponse(http.StatusCreated, models.NewGenre(&taxonomy.TreeNode{Category: created}))
}

func (h *Handler) payload(body []byte, err error) events.APIGatewayProxyResponse {
	if err != nil {
		return h.failure(err)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func (h *Handler) failure(err error) events.APIGatewayProxyResponse {
	status, msg := handlers.ErrorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	return errorResponse(status, msg)
}

func boolParam(request events.APIGatewayProxyRequest, name string) (bool, error) {
	raw := request.QueryStringParameters[name]
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResponse(http.StatusInternalServerError, "failed to marshal response")
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func errorResponse(status int, msg string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
