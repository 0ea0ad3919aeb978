// Package service answers taxonomy requests. Each request reads one store
// snapshot and runs filter, accumulate and project against it; rendered
// payloads are cached per request shape and snapshot version.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ammiranda/taxonomy_service/cache"
	"github.com/ammiranda/taxonomy_service/internal/metrics"
	"github.com/ammiranda/taxonomy_service/models"
	"github.com/ammiranda/taxonomy_service/repository"
	"github.com/ammiranda/taxonomy_service/taxonomy"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Payload names used as cache metric labels
const (
	payloadTree  = "tree"
	payloadFlat  = "flat"
	payloadNode  = "node"
	payloadGraph = "graph"
)

// TaxonomyService serves the genre taxonomy
type TaxonomyService struct {
	store   *taxonomy.Store
	repo    repository.Repository
	cache   cache.CacheProvider
	logger  *zap.Logger
	metrics *metrics.Collector

	// serializes CreateCategory so id allocation and persistence stay in step
	writeMu sync.Mutex
}

// Option configures a TaxonomyService
type Option func(*TaxonomyService)

// WithCache enables payload caching
func WithCache(c cache.CacheProvider) Option {
	return func(s *TaxonomyService) { s.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *TaxonomyService) { s.logger = l }
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(s *TaxonomyService) { s.metrics = m }
}

// New creates a service over store, reading documents from repo
func New(store *taxonomy.Store, repo repository.Repository, opts ...Option) *TaxonomyService {
	s := &TaxonomyService{
		store:  store,
		repo:   repo,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewCollector("taxonomy")
	}
	s.metrics.Categories.Set(float64(store.Len()))
	return s
}

// Store returns the underlying taxonomy store
func (s *TaxonomyService) Store() *taxonomy.Store {
	return s.store
}

// GetTaxonomy returns the filtered forest with document counts
func (s *TaxonomyService) GetTaxonomy(ctx context.Context, includeInactive bool) ([]*taxonomy.TreeNode, error) {
	return s.taxonomyView(ctx, s.store.Snapshot(), includeInactive)
}

// GetTaxonomyNode returns the subtree rooted at id. A category hidden by
// visibility filtering is reported as taxonomy.ErrNotFound.
func (s *TaxonomyService) GetTaxonomyNode(ctx context.Context, id int64, includeInactive bool) (*taxonomy.TreeNode, error) {
	return s.nodeView(ctx, s.store.Snapshot(), id, includeInactive)
}

// GetGraph projects the forest, or the subtree of categoryID, into a graph
func (s *TaxonomyService) GetGraph(ctx context.Context, categoryID *int64, includeInactive bool) (*taxonomy.Graph, error) {
	return s.graphView(ctx, s.store.Snapshot(), categoryID, includeInactive)
}

// FlatEntry is a category with its subtree document count
type FlatEntry struct {
	Category      taxonomy.Category
	DocumentCount int
}

// ListCategories returns the visible categories ordered by level, display
// order and id
func (s *TaxonomyService) ListCategories(ctx context.Context, includeInactive bool) ([]FlatEntry, error) {
	return s.flatView(ctx, s.store.Snapshot(), includeInactive)
}

func (s *TaxonomyService) taxonomyView(ctx context.Context, snap *taxonomy.Snapshot, includeInactive bool) ([]*taxonomy.TreeNode, error) {
	roots, err := s.forest(snap, includeInactive)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents(ctx)
	if err != nil {
		return nil, err
	}
	taxonomy.Accumulate(roots, docs, taxonomy.DocumentsFor(includeInactive))
	return roots, nil
}

func (s *TaxonomyService) nodeView(ctx context.Context, snap *taxonomy.Snapshot, id int64, includeInactive bool) (*taxonomy.TreeNode, error) {
	node, err := s.subtree(snap, id, includeInactive)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents(ctx)
	if err != nil {
		return nil, err
	}
	taxonomy.Accumulate([]*taxonomy.TreeNode{node}, docs, taxonomy.DocumentsFor(includeInactive))
	return node, nil
}

func (s *TaxonomyService) graphView(ctx context.Context, snap *taxonomy.Snapshot, categoryID *int64, includeInactive bool) (*taxonomy.Graph, error) {
	var roots []*taxonomy.TreeNode
	if categoryID != nil {
		node, err := s.subtree(snap, *categoryID, includeInactive)
		if err != nil {
			return nil, err
		}
		roots = []*taxonomy.TreeNode{node}
	} else {
		forest, err := s.forest(snap, includeInactive)
		if err != nil {
			return nil, err
		}
		roots = forest
	}

	docs, err := s.documents(ctx)
	if err != nil {
		return nil, err
	}
	pred := taxonomy.DocumentsFor(includeInactive)
	taxonomy.Accumulate(roots, docs, pred)
	return taxonomy.Project(roots, docs, pred), nil
}

func (s *TaxonomyService) flatView(ctx context.Context, snap *taxonomy.Snapshot, includeInactive bool) ([]FlatEntry, error) {
	roots, err := s.taxonomyView(ctx, snap, includeInactive)
	if err != nil {
		return nil, err
	}

	var entries []FlatEntry
	for _, root := range roots {
		root.Walk(func(node, _ *taxonomy.TreeNode) {
			entries = append(entries, FlatEntry{Category: node.Category, DocumentCount: node.LeafCount})
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Category, entries[j].Category
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})
	return entries, nil
}

// CreateCategoryInput describes a new category
type CreateCategoryInput struct {
	Name         string
	ParentID     *int64
	DisplayOrder int
	Active       bool
}

// createAttempts bounds retries when another instance takes the allocated id
const createAttempts = 3

// CreateCategory allocates an id, validates the insert against the store,
// persists the genre and then publishes it. Nothing is written when
// validation fails. The store is reloaded from the repository first so ids
// and parents written by other instances are seen.
func (s *TaxonomyService) CreateCategory(ctx context.Context, in CreateCategoryInput) (taxonomy.Category, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		planned taxonomy.Category
		err     error
	)
	for attempt := 1; ; attempt++ {
		if err := s.reload(ctx); err != nil {
			return taxonomy.Category{}, err
		}

		planned, err = s.store.Validate(taxonomy.Category{
			ID:           s.store.Snapshot().NextID(),
			Name:         in.Name,
			ParentID:     in.ParentID,
			DisplayOrder: in.DisplayOrder,
			Active:       in.Active,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return taxonomy.Category{}, err
		}

		err = s.repo.CreateGenre(ctx, categoryToGenre(planned))
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicateGenre) || attempt == createAttempts {
			return taxonomy.Category{}, fmt.Errorf("failed to persist genre: %w", err)
		}
		s.logger.Warn("genre id taken concurrently, retrying",
			zap.Int64("genre_id", planned.ID), zap.Int("attempt", attempt))
	}

	inserted, err := s.store.Insert(planned)
	if err != nil {
		// persisted but not published; the next reload picks it up
		s.logger.Error("genre persisted but not added to taxonomy",
			zap.Int64("genre_id", planned.ID), zap.Error(err))
		return taxonomy.Category{}, err
	}

	s.metrics.Categories.Set(float64(s.store.Len()))
	if s.cache != nil {
		// entries of older versions are unreachable; drop them early
		s.cache.InvalidateCache()
	}
	s.logger.Info("genre created",
		zap.Int64("genre_id", inserted.ID),
		zap.String("path", inserted.Path),
		zap.Int("level", inserted.Depth))
	return inserted, nil
}

// Reload replaces the in-memory taxonomy with the persisted one
func (s *TaxonomyService) Reload(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.reload(ctx)
}

func (s *TaxonomyService) reload(ctx context.Context) error {
	before := s.store.Snapshot().Version()
	if err := syncStore(ctx, s.repo, s.store); err != nil {
		return s.invariant(err)
	}
	if after := s.store.Snapshot().Version(); after != before {
		s.metrics.Categories.Set(float64(s.store.Len()))
		s.logger.Info("taxonomy reloaded", zap.Int("categories", s.store.Len()))
	}
	return nil
}

// RunReloader calls Reload every interval until ctx is done
func (s *TaxonomyService) RunReloader(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("taxonomy reload failed", zap.Error(err))
			}
		}
	}
}

// TaxonomyJSON returns the encoded nested taxonomy
func (s *TaxonomyService) TaxonomyJSON(ctx context.Context, includeInactive bool) ([]byte, error) {
	snap := s.store.Snapshot()
	return s.cached(payloadTree, cache.TaxonomyKey(snap.Version(), includeInactive), func() (any, error) {
		roots, err := s.taxonomyView(ctx, snap, includeInactive)
		if err != nil {
			return nil, err
		}
		return models.NewGenreTree(roots), nil
	})
}

// NodeJSON returns the encoded subtree rooted at id
func (s *TaxonomyService) NodeJSON(ctx context.Context, id int64, includeInactive bool) ([]byte, error) {
	snap := s.store.Snapshot()
	return s.cached(payloadNode, cache.NodeKey(snap.Version(), id, includeInactive), func() (any, error) {
		node, err := s.nodeView(ctx, snap, id, includeInactive)
		if err != nil {
			return nil, err
		}
		return models.NewGenre(node), nil
	})
}

// FlatJSON returns the encoded flat category list
func (s *TaxonomyService) FlatJSON(ctx context.Context, includeInactive bool) ([]byte, error) {
	snap := s.store.Snapshot()
	return s.cached(payloadFlat, cache.FlatKey(snap.Version(), includeInactive), func() (any, error) {
		entries, err := s.flatView(ctx, snap, includeInactive)
		if err != nil {
			return nil, err
		}
		out := make([]*models.GenreSummary, 0, len(entries))
		for _, e := range entries {
			out = append(out, models.NewGenreSummary(e.Category, e.DocumentCount))
		}
		return out, nil
	})
}

// GraphJSON returns the encoded network graph
func (s *TaxonomyService) GraphJSON(ctx context.Context, categoryID *int64, includeInactive bool) ([]byte, error) {
	snap := s.store.Snapshot()
	return s.cached(payloadGraph, cache.GraphKey(snap.Version(), categoryID, includeInactive), func() (any, error) {
		g, err := s.graphView(ctx, snap, categoryID, includeInactive)
		if err != nil {
			return nil, err
		}
		return models.NewNetworkGraph(g), nil
	})
}

// Warm renders the common payloads in parallel so the first requests hit
// the cache
func (s *TaxonomyService) Warm(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, includeInactive := range []bool{false, true} {
		includeInactive := includeInactive
		g.Go(func() error {
			_, err := s.TaxonomyJSON(ctx, includeInactive)
			return err
		})
		g.Go(func() error {
			_, err := s.FlatJSON(ctx, includeInactive)
			return err
		})
		g.Go(func() error {
			_, err := s.GraphJSON(ctx, nil, includeInactive)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("cache warm-up failed: %w", err)
	}
	s.logger.Info("cache warmed", zap.Int("categories", s.store.Len()))
	return nil
}

// cached returns the payload under key, building and storing it on a miss.
// Failed builds are never cached.
func (s *TaxonomyService) cached(payload, key string, build func() (any, error)) ([]byte, error) {
	if s.cache != nil {
		if body, ok := s.cache.Get(key); ok {
			s.metrics.CacheHits.WithLabelValues(payload).Inc()
			return body, nil
		}
		s.metrics.CacheMisses.WithLabelValues(payload).Inc()
	}

	timer := prometheus.NewTimer(s.metrics.BuildDuration.WithLabelValues(payload))
	value, err := build()
	timer.ObserveDuration()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", payload, err)
	}
	if s.cache != nil {
		s.cache.Set(key, body)
	}
	return body, nil
}

func (s *TaxonomyService) forest(snap *taxonomy.Snapshot, includeInactive bool) ([]*taxonomy.TreeNode, error) {
	roots, err := snap.Forest()
	if err != nil {
		return nil, s.invariant(err)
	}
	return taxonomy.FilterTree(roots, includeInactive), nil
}

func (s *TaxonomyService) subtree(snap *taxonomy.Snapshot, id int64, includeInactive bool) (*taxonomy.TreeNode, error) {
	c, err := snap.Get(id)
	if err != nil {
		return nil, err
	}
	if !includeInactive {
		visible, err := s.ancestorsActive(snap, c)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, fmt.Errorf("%w: %d", taxonomy.ErrNotFound, id)
		}
	}

	node, err := snap.Subtree(id)
	if err != nil {
		return nil, s.invariant(err)
	}
	filtered, ok := taxonomy.FilterNode(node, includeInactive)
	if !ok {
		return nil, fmt.Errorf("%w: %d", taxonomy.ErrNotFound, id)
	}
	return filtered, nil
}

// ancestorsActive reports whether every strict ancestor of c is active
func (s *TaxonomyService) ancestorsActive(snap *taxonomy.Snapshot, c taxonomy.Category) (bool, error) {
	ids, err := taxonomy.DecodePath(c.Path)
	if err != nil {
		return false, s.invariant(&taxonomy.InvariantError{NodeID: c.ID, Reason: err.Error()})
	}
	for _, ancestorID := range ids[:len(ids)-1] {
		ancestor, err := snap.Get(ancestorID)
		if err != nil {
			return false, s.invariant(&taxonomy.InvariantError{NodeID: c.ID, Reason: fmt.Sprintf("path names missing ancestor %d", ancestorID)})
		}
		if !ancestor.Active {
			return false, nil
		}
	}
	return true, nil
}

func (s *TaxonomyService) documents(ctx context.Context) ([]taxonomy.Document, error) {
	docs, err := s.repo.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	leaves := make([]taxonomy.Document, 0, len(docs))
	for _, d := range docs {
		leaves = append(leaves, documentToLeaf(d))
	}
	return leaves, nil
}

// invariant logs and counts broken structural invariants
func (s *TaxonomyService) invariant(err error) error {
	var inv *taxonomy.InvariantError
	if errors.As(err, &inv) {
		s.metrics.Invariant.Inc()
		s.logger.Error("taxonomy invariant violated",
			zap.Int64("node_id", inv.NodeID),
			zap.String("reason", inv.Reason))
	}
	return err
}
