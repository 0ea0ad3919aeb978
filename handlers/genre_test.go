package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ammiranda/taxonomy_service/cache"
	"github.com/ammiranda/taxonomy_service/internal/metrics"
	"github.com/ammiranda/taxonomy_service/models"
	"github.com/ammiranda/taxonomy_service/repository"
	"github.com/ammiranda/taxonomy_service/service"
	"github.com/ammiranda/taxonomy_service/taxonomy"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func int64Ptr(v int64) *int64 { return &v }

type testEnv struct {
	router    *gin.Engine
	repo      *repository.MockRepository
	collector *metrics.Collector
}

// setupTest builds the router over 1 -> 1/6 -> 1/6/27 and root 12 with one
// published document under 27. Genres listed in inactive are stored inactive.
func setupTest(t *testing.T, inactive ...int64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	off := make(map[int64]bool)
	for _, id := range inactive {
		off[id] = true
	}

	repo := repository.NewMockRepository()
	require.NoError(t, repo.Initialize(ctx))
	for _, g := range []*repository.Genre{
		{ID: 1, Name: "Manga", Level: 1, Path: "1", DisplayOrder: 1},
		{ID: 12, Name: "Novels", Level: 1, Path: "12", DisplayOrder: 2},
		{ID: 6, Name: "Shonen", ParentID: int64Ptr(1), Level: 2, Path: "1/6", DisplayOrder: 1},
		{ID: 27, Name: "Battle", ParentID: int64Ptr(6), Level: 3, Path: "1/6/27", DisplayOrder: 1},
	} {
		g.IsActive = !off[g.ID]
		require.NoError(t, repo.CreateGenre(ctx, g))
	}
	_, err := repo.CreateDocument(ctx, &repository.Document{
		Title: "Getting started", GenreID: 27, Status: repository.StatusPublished, ViewCount: 40, HelpfulCount: 7,
	})
	require.NoError(t, err)

	store, err := service.LoadStore(ctx, repo, taxonomy.DefaultMaxDepth)
	require.NoError(t, err)

	collector := metrics.NewCollector("taxonomy")
	svc := service.New(store, repo,
		service.WithCache(cache.NewMemoryCache()),
		service.WithMetrics(collector),
		service.WithLogger(zap.NewNop()),
	)

	return &testEnv{
		router:    NewRouter(svc, zap.NewNop(), collector),
		repo:      repo,
		collector: collector,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, target, bytes.NewBuffer(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestGetGenres(t *testing.T) {
	env := setupTest(t, 6)

	w := env.do(t, http.MethodGet, "/api/genres", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var genres []models.Genre
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genres))
	require.Len(t, genres, 2)
	assert.Equal(t, "Manga", genres[0].Name)
	assert.Empty(t, genres[0].Children)

	w = env.do(t, http.MethodGet, "/api/genres?include_inactive=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genres))
	require.Len(t, genres[0].Children, 1)
	assert.Equal(t, 1, genres[0].DocumentCount)
	assert.False(t, genres[0].Children[0].IsActive)

	w = env.do(t, http.MethodGet, "/api/genres?include_inactive=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetFlatGenres(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, http.MethodGet, "/api/genres/flat", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var flat []models.GenreSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &flat))
	require.Len(t, flat, 4)
	assert.Equal(t, []int64{1, 12, 6, 27}, []int64{flat[0].ID, flat[1].ID, flat[2].ID, flat[3].ID})
}

func TestGetGenre(t *testing.T) {
	env := setupTest(t, 6)

	w := env.do(t, http.MethodGet, "/api/genres/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/genres/27", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "hidden by inactive parent")

	w = env.do(t, http.MethodGet, "/api/genres/27?include_inactive=true", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var genre models.Genre
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &genre))
	assert.Equal(t, "1/6/27", genre.Path)
	assert.Equal(t, 3, genre.Level)
	assert.Equal(t, 1, genre.DocumentCount)

	w = env.do(t, http.MethodGet, "/api/genres/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateGenre(t *testing.T) {
	env := setupTest(t)

	// prime the cache so the insert has something to invalidate
	w := env.do(t, http.MethodGet, "/api/genres", nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := w.Body.String()

	payload, _ := json.Marshal(models.CreateGenreRequest{Name: "Isekai", ParentID: int64Ptr(6), DisplayOrder: 2})
	w = env.do(t, http.MethodPost, "/api/genres", payload)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created models.Genre
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, int64(28), created.ID)
	assert.Equal(t, "1/6/28", created.Path)
	assert.Equal(t, 3, created.Level)
	assert.True(t, created.IsActive)

	stored, err := env.repo.GetGenre(context.Background(), 28)
	require.NoError(t, err)
	assert.Equal(t, "Isekai", stored.Name)

	w = env.do(t, http.MethodGet, "/api/genres", nil)
	assert.NotEqual(t, before, w.Body.String())
}

func TestCreateGenreErrors(t *testing.T) {
	env := setupTest(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"name":`, http.StatusBadRequest},
		{"missing name", `{"display_order":1}`, http.StatusBadRequest},
		{"unknown parent", `{"name":"x","parent_id":404}`, http.StatusNotFound},
		{"fourth level", `{"name":"four","parent_id":27}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/genres", []byte(tt.body))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	// 1/6/27/28 is depth 4; two more levels break the bound of 5
	w := env.do(t, http.MethodPost, "/api/genres", []byte(`{"name":"five","parent_id":28}`))
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodPost, "/api/genres", []byte(`{"name":"six","parent_id":29}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.repo.SetError(assert.AnError)
	w = env.do(t, http.MethodPost, "/api/genres", []byte(`{"name":"x"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestGetNetworkGraph(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, http.MethodGet, "/api/network/graph?genre_id=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var graph models.NetworkGraph
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))

	kinds := map[string]int{}
	for _, n := range graph.Nodes {
		kinds[n.Type]++
	}
	links := map[string]int{}
	for _, l := range graph.Links {
		links[l.Type]++
	}
	assert.Equal(t, 3, kinds[models.NodeTypeGenre])
	assert.Equal(t, 1, kinds[models.NodeTypeDocument])
	assert.Equal(t, 2, links[models.LinkTypeHierarchy])
	assert.Equal(t, 1, links[models.LinkTypeDocument])

	w = env.do(t, http.MethodGet, "/api/network/graph", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &graph))
	assert.Len(t, graph.Nodes, 5)

	w = env.do(t, http.MethodGet, "/api/network/graph?genre_id=999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/network/graph?genre_id=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTest(t)

	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","categories":4}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `taxonomy_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestRequestIDIsPropagated(t *testing.T) {
	env := setupTest(t)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
