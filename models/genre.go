package models

import "github.com/ammiranda/taxonomy_service/taxonomy"

// Genre is a category in the nested taxonomy response
type Genre struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	ParentID      *int64   `json:"parent_id"`
	Level         int      `json:"level"`
	Path          string   `json:"path"`
	DisplayOrder  int      `json:"display_order"`
	IsActive      bool     `json:"is_active"`
	DocumentCount int      `json:"document_count"`
	Children      []*Genre `json:"children"`
}

// GenreSummary is a category in the flat listing
type GenreSummary struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	ParentID      *int64 `json:"parent_id"`
	Level         int    `json:"level"`
	Path          string `json:"path"`
	DisplayOrder  int    `json:"display_order"`
	IsActive      bool   `json:"is_active"`
	DocumentCount int    `json:"document_count"`
}

// NewGenre converts a tree view node and its descendants
func NewGenre(node *taxonomy.TreeNode) *Genre {
	g := &Genre{
		ID:            node.ID,
		Name:          node.Name,
		ParentID:      node.ParentID,
		Level:         node.Depth,
		Path:          node.Path,
		DisplayOrder:  node.DisplayOrder,
		IsActive:      node.Active,
		DocumentCount: node.LeafCount,
		Children:      make([]*Genre, 0, len(node.Children)),
	}
	for _, child := range node.Children {
		g.Children = append(g.Children, NewGenre(child))
	}
	return g
}

// NewGenreTree converts a forest, keeping its order
func NewGenreTree(roots []*taxonomy.TreeNode) []*Genre {
	genres := make([]*Genre, 0, len(roots))
	for _, root := range roots {
		genres = append(genres, NewGenre(root))
	}
	return genres
}

// NewGenreSummary converts a single category and its document count
func NewGenreSummary(c taxonomy.Category, documentCount int) *GenreSummary {
	return &GenreSummary{
		ID:            c.ID,
		Name:          c.Name,
		ParentID:      c.ParentID,
		Level:         c.Depth,
		Path:          c.Path,
		DisplayOrder:  c.DisplayOrder,
		IsActive:      c.Active,
		DocumentCount: documentCount,
	}
}
