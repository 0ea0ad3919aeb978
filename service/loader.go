package service

import (
	"context"
	"fmt"

	"github.com/ammiranda/taxonomy_service/repository"
	"github.com/ammiranda/taxonomy_service/taxonomy"
)

// LoadStore builds a taxonomy store from every persisted genre. The stored
// level and path of each genre must match what the store computes from its
// parent chain; a mismatch is reported as an *taxonomy.InvariantError.
func LoadStore(ctx context.Context, repo repository.Repository, maxDepth int) (*taxonomy.Store, error) {
	store := taxonomy.NewStore(taxonomy.WithMaxDepth(maxDepth))
	if err := syncStore(ctx, repo, store); err != nil {
		return nil, err
	}
	return store, nil
}

// syncStore replaces the content of store with the persisted genres. The
// store is only touched once the whole hierarchy has been checked.
func syncStore(ctx context.Context, repo repository.Repository, store *taxonomy.Store) error {
	genres, err := repo.ListGenres(ctx)
	if err != nil {
		return fmt.Errorf("failed to list genres: %w", err)
	}

	categories := make([]taxonomy.Category, 0, len(genres))
	for _, g := range genres {
		categories = append(categories, genreToCategory(g))
	}

	staged := taxonomy.NewStore(taxonomy.WithMaxDepth(store.MaxDepth()))
	if err := staged.InsertAll(categories); err != nil {
		return fmt.Errorf("failed to load taxonomy: %w", err)
	}

	for _, g := range genres {
		c, err := staged.Get(g.ID)
		if err != nil {
			return err
		}
		if c.Depth != g.Level || c.Path != g.Path {
			return &taxonomy.InvariantError{
				NodeID: g.ID,
				Reason: fmt.Sprintf("stored level %d path %q, computed level %d path %q", g.Level, g.Path, c.Depth, c.Path),
			}
		}
	}
	return store.Replace(staged.Snapshot().All())
}

func genreToCategory(g *repository.Genre) taxonomy.Category {
	return taxonomy.Category{
		ID:           g.ID,
		Name:         g.Name,
		ParentID:     g.ParentID,
		Depth:        g.Level,
		Path:         g.Path,
		DisplayOrder: g.DisplayOrder,
		Active:       g.IsActive,
		CreatedAt:    g.CreatedAt,
	}
}

func categoryToGenre(c taxonomy.Category) *repository.Genre {
	return &repository.Genre{
		ID:           c.ID,
		Name:         c.Name,
		ParentID:     c.ParentID,
		Level:        c.Depth,
		Path:         c.Path,
		DisplayOrder: c.DisplayOrder,
		IsActive:     c.Active,
		CreatedAt:    c.CreatedAt,
	}
}

func documentToLeaf(d *repository.Document) taxonomy.Document {
	return taxonomy.Document{
		ID:           d.ID,
		CategoryID:   d.GenreID,
		Title:        d.Title,
		Visible:      d.Status == repository.StatusPublished,
		ViewCount:    d.ViewCount,
		HelpfulCount: d.HelpfulCount,
	}
}
