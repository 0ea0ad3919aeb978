package repository

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"
)

// MockRepository implements Repository interface for testing
type MockRepository struct {
	genres    map[int64]*Genre
	paths     map[string]int64
	documents map[int64]*Document
	nextDocID int64
	err       error
	mu        sync.RWMutex
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{
		genres:    make(map[int64]*Genre),
		paths:     make(map[string]int64),
		documents: make(map[int64]*Document),
	}
}

// SetError makes every subsequent call fail with err. Pass nil to clear it.
func (m *MockRepository) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Initialize performs any necessary setup
func (m *MockRepository) Initialize(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Cleanup performs any necessary cleanup
func (m *MockRepository) Cleanup(ctx context.Context) error {
	return nil
}

// CreateGenre stores a copy of genre
func (m *MockRepository) CreateGenre(ctx context.Context, genre *Genre) error {
	if err := validateGenre(genre); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	return putGenre(m.genres, m.paths, genre)
}

// putGenre applies the id, path and parent constraints and stores a copy
func putGenre(genres map[int64]*Genre, paths map[string]int64, genre *Genre) error {
	if _, ok := genres[genre.ID]; ok {
		return ErrDuplicateGenre
	}
	if _, ok := paths[genre.Path]; ok {
		return ErrDuplicateGenre
	}
	if genre.ParentID != nil {
		if _, ok := genres[*genre.ParentID]; !ok {
			return ErrGenreNotFound
		}
	}
	if genre.CreatedAt.IsZero() {
		genre.CreatedAt = time.Now().UTC()
	}

	genres[genre.ID] = copyGenre(genre)
	paths[genre.Path] = genre.ID
	return nil
}

// GetGenre retrieves a genre by ID
func (m *MockRepository) GetGenre(ctx context.Context, id int64) (*Genre, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	genre, ok := m.genres[id]
	if !ok {
		return nil, ErrGenreNotFound
	}
	return copyGenre(genre), nil
}

// ListGenres retrieves all genres ordered by level, display order and id
func (m *MockRepository) ListGenres(ctx context.Context) ([]*Genre, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	result := make([]*Genre, 0, len(m.genres))
	for _, genre := range m.genres {
		result = append(result, copyGenre(genre))
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		return a.ID < b.ID
	})
	return result, nil
}

// CreateDocument stores a copy of doc and assigns its ID
func (m *MockRepository) CreateDocument(ctx context.Context, doc *Document) (int64, error) {
	if err := validateDocument(doc); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}

	if _, ok := m.genres[doc.GenreID]; !ok {
		return 0, ErrGenreNotFound
	}

	m.nextDocID++
	doc.ID = m.nextDocID
	stored := *doc
	m.documents[doc.ID] = &stored
	return doc.ID, nil
}

// ListDocuments retrieves all documents ordered by id
func (m *MockRepository) ListDocuments(ctx context.Context) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}

	result := make([]*Document, 0, len(m.documents))
	for _, doc := range m.documents {
		docCopy := *doc
		result = append(result, &docCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ImportCatalog stages the import on copies and swaps them in only when
// every row was accepted
func (m *MockRepository) ImportCatalog(ctx context.Context, genres []*Genre, docs []*Document, replace bool) error {
	if err := validateCatalog(genres, docs); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}

	stagedGenres := make(map[int64]*Genre)
	stagedPaths := make(map[string]int64)
	stagedDocs := make(map[int64]*Document)
	nextDocID := int64(0)
	if !replace {
		maps.Copy(stagedGenres, m.genres)
		maps.Copy(stagedPaths, m.paths)
		maps.Copy(stagedDocs, m.documents)
		nextDocID = m.nextDocID
	}

	for _, genre := range genres {
		if err := putGenre(stagedGenres, stagedPaths, genre); err != nil {
			return fmt.Errorf("genre %d: %w", genre.ID, err)
		}
	}
	ids := make([]int64, len(docs))
	for i, doc := range docs {
		if _, ok := stagedGenres[doc.GenreID]; !ok {
			return fmt.Errorf("document %q: %w", doc.Title, ErrGenreNotFound)
		}
		nextDocID++
		stored := *doc
		stored.ID = nextDocID
		stagedDocs[stored.ID] = &stored
		ids[i] = stored.ID
	}

	m.genres, m.paths, m.documents, m.nextDocID = stagedGenres, stagedPaths, stagedDocs, nextDocID
	for i, doc := range docs {
		doc.ID = ids[i]
	}
	return nil
}

func copyGenre(g *Genre) *Genre {
	c := *g
	if g.ParentID != nil {
		parentID := *g.ParentID
		c.ParentID = &parentID
	}
	return &c
}
