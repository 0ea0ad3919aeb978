package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector(t *testing.T) {
	c := NewCollector("taxonomy")
	c.CacheHits.WithLabelValues("graph").Inc()
	c.CacheHits.WithLabelValues("graph").Inc()
	c.Categories.Set(42)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.CacheHits.WithLabelValues("graph")))
	assert.Equal(t, float64(42), testutil.ToFloat64(c.Categories))

	// independent registries do not collide
	other := NewCollector("taxonomy")
	assert.Equal(t, float64(0), testutil.ToFloat64(other.Categories))

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taxonomy_taxonomy_categories 42")
}
