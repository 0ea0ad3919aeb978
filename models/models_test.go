package models

import (
	"encoding/json"
	"testing"

	"github.com/ammiranda/taxonomy_service/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGenreRequestValidate(t *testing.T) {
	parent := int64(1)
	zero := int64(0)
	inactive := false

	tests := []struct {
		name    string
		req     CreateGenreRequest
		wantErr bool
	}{
		{"root", CreateGenreRequest{Name: "Manga"}, false},
		{"child", CreateGenreRequest{Name: "Shonen", ParentID: &parent, DisplayOrder: 2}, false},
		{"missing name", CreateGenreRequest{}, true},
		{"zero parent", CreateGenreRequest{Name: "x", ParentID: &zero}, true},
		{"negative order", CreateGenreRequest{Name: "x", DisplayOrder: -1}, true},
		{"inactive", CreateGenreRequest{Name: "x", IsActive: &inactive}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.True(t, (&CreateGenreRequest{}).Active())
	assert.False(t, (&CreateGenreRequest{IsActive: &inactive}).Active())
}

func TestGraphQueryValidate(t *testing.T) {
	id := int64(-3)
	assert.Error(t, (&GraphQuery{GenreID: &id}).Validate())
	assert.NoError(t, (&GraphQuery{}).Validate())
}

func TestNewGenreTree(t *testing.T) {
	parent := int64(1)
	roots := []*taxonomy.TreeNode{{
		Category:  taxonomy.Category{ID: 1, Name: "Manga", Depth: 1, Path: "1", Active: true},
		LeafCount: 3,
		Children: []*taxonomy.TreeNode{{
			Category:  taxonomy.Category{ID: 6, Name: "Shonen", ParentID: &parent, Depth: 2, Path: "1/6", Active: true},
			LeafCount: 3,
		}},
	}}

	genres := NewGenreTree(roots)
	require.Len(t, genres, 1)
	assert.Equal(t, 3, genres[0].DocumentCount)
	require.Len(t, genres[0].Children, 1)
	assert.Equal(t, "1/6", genres[0].Children[0].Path)
	assert.Equal(t, 2, genres[0].Children[0].Level)

	// leaves encode an empty children array, not null
	body, err := json.Marshal(genres[0].Children[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), `"children":[]`)
	assert.Contains(t, string(body), `"parent_id":1`)
}

func TestNewNetworkGraph(t *testing.T) {
	g := &taxonomy.Graph{
		Nodes: []taxonomy.GraphNode{
			{ID: "category:1", Kind: taxonomy.KindCategory, Label: "Manga", CategoryID: 1, Depth: 1, LeafCount: 1},
			{ID: "leaf:9", Kind: taxonomy.KindLeaf, Label: "Guide", CategoryID: 1, DocumentID: 9, ViewCount: 12, HelpfulCount: 4},
		},
		Edges: []taxonomy.GraphEdge{
			{Source: "category:1", Target: "leaf:9", Kind: taxonomy.EdgeMembership},
		},
	}

	out := NewNetworkGraph(g)
	require.Len(t, out.Nodes, 2)
	require.Len(t, out.Links, 1)

	genre := out.Nodes[0]
	assert.Equal(t, NodeTypeGenre, genre.Type)
	require.NotNil(t, genre.GenreID)
	assert.Equal(t, int64(1), *genre.GenreID)
	assert.Nil(t, genre.DocumentID)
	assert.Nil(t, genre.ViewCount)

	doc := out.Nodes[1]
	assert.Equal(t, NodeTypeDocument, doc.Type)
	require.NotNil(t, doc.ViewCount)
	assert.Equal(t, 12, *doc.ViewCount)
	assert.Nil(t, doc.Level)

	assert.Equal(t, LinkTypeDocument, out.Links[0].Type)

	empty := NewNetworkGraph(&taxonomy.Graph{})
	body, err := json.Marshal(empty)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"links":[]}`, string(body))
}
