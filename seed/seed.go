// Package seed loads master genres and sample documents into a repository.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ammiranda/taxonomy_service/repository"
	"github.com/ammiranda/taxonomy_service/taxonomy"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrCatalogNotEmpty is returned when genres already exist and Force is not set
var ErrCatalogNotEmpty = errors.New("catalog already contains genres")

// GenreSeed is one genre entry of a catalog file
type GenreSeed struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	ParentID     *int64 `yaml:"parent_id"`
	DisplayOrder int    `yaml:"display_order"`
	Active       *bool  `yaml:"active"`
}

// IsActive defaults to true when the entry leaves active unset
func (g GenreSeed) IsActive() bool {
	return g.Active == nil || *g.Active
}

// DocumentSeed is one document entry of a catalog file
type DocumentSeed struct {
	Title        string `yaml:"title"`
	GenreID      int64  `yaml:"genre_id"`
	Status       string `yaml:"status"`
	ViewCount    int    `yaml:"view_count"`
	HelpfulCount int    `yaml:"helpful_count"`
}

// Catalog is the content of a seed file
type Catalog struct {
	Genres    []GenreSeed    `yaml:"genres"`
	Documents []DocumentSeed `yaml:"documents"`
}

// Default returns the embedded master catalog
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from a YAML file
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a catalog. Unknown keys are rejected.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return &c, nil
}

// Build checks the catalog against the taxonomy rules and returns the store
// it describes. Documents must reference a listed genre and carry a known
// status.
func (c *Catalog) Build(maxDepth int) (*taxonomy.Store, error) {
	categories := make([]taxonomy.Category, 0, len(c.Genres))
	for _, g := range c.Genres {
		categories = append(categories, taxonomy.Category{
			ID:           g.ID,
			Name:         g.Name,
			ParentID:     g.ParentID,
			DisplayOrder: g.DisplayOrder,
			Active:       g.IsActive(),
		})
	}

	store := taxonomy.NewStore(taxonomy.WithMaxDepth(maxDepth))
	if err := store.InsertAll(categories); err != nil {
		return nil, err
	}

	for i, d := range c.Documents {
		if d.Title == "" {
			return nil, fmt.Errorf("document %d: title is required", i)
		}
		if _, err := store.Get(d.GenreID); err != nil {
			return nil, fmt.Errorf("document %q: genre %d: %w", d.Title, d.GenreID, err)
		}
		if !repository.DocumentStatus(d.Status).Valid() {
			return nil, fmt.Errorf("document %q: unknown status %q", d.Title, d.Status)
		}
	}
	return store, nil
}

// Options controls a seed run
type Options struct {
	// Force wipes existing genres and documents before writing
	Force    bool
	MaxDepth int
}

// Result reports what a run wrote
type Result struct {
	Genres    int
	Documents int
	Skipped   bool
}

// Run writes the catalog into repo as one import. The whole catalog is
// validated before anything is written. A non-empty repository is left
// untouched unless opts.Force is set, in which case its content is replaced.
// A failed import leaves the previous content in place.
func Run(ctx context.Context, repo repository.Repository, c *Catalog, opts Options, logger *zap.Logger) (Result, error) {
	store, err := c.Build(opts.MaxDepth)
	if err != nil {
		return Result{}, fmt.Errorf("invalid catalog: %w", err)
	}

	existing, err := repo.ListGenres(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list genres: %w", err)
	}
	replace := len(existing) > 0
	if replace {
		if !opts.Force {
			logger.Info("genres already present, skipping seed", zap.Int("genres", len(existing)))
			return Result{Skipped: true}, ErrCatalogNotEmpty
		}
		logger.Warn("replacing catalog", zap.Int("genres", len(existing)))
	}

	all := store.Snapshot().All()
	genres := make([]*repository.Genre, 0, len(all))
	for _, cat := range all {
		genres = append(genres, &repository.Genre{
			ID:           cat.ID,
			Name:         cat.Name,
			ParentID:     cat.ParentID,
			Level:        cat.Depth,
			Path:         cat.Path,
			DisplayOrder: cat.DisplayOrder,
			IsActive:     cat.Active,
		})
	}

	docs := make([]*repository.Document, 0, len(c.Documents))
	for _, d := range c.Documents {
		docs = append(docs, &repository.Document{
			Title:        d.Title,
			GenreID:      d.GenreID,
			Status:       repository.DocumentStatus(d.Status),
			ViewCount:    d.ViewCount,
			HelpfulCount: d.HelpfulCount,
		})
	}

	if err := repo.ImportCatalog(ctx, genres, docs, replace); err != nil {
		return Result{}, fmt.Errorf("failed to import catalog: %w", err)
	}
	for _, doc := range docs {
		logger.Debug("document created", zap.Int64("id", doc.ID), zap.String("title", doc.Title))
	}

	res := Result{Genres: len(genres), Documents: len(docs)}
	logger.Info("catalog seeded", zap.Int("genres", res.Genres), zap.Int("documents", res.Documents))
	return res, nil
}
