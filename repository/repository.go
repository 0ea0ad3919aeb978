package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Genre is a persisted taxonomy category
type Genre struct {
	ID           int64     // Unique identifier, assigned by the taxonomy
	Name         string    // Display label
	ParentID     *int64    // Optional reference to the parent genre
	Level        int       // Depth in the hierarchy, 1 for top-level genres
	Path         string    // Materialized path, e.g. "1/6/27"
	DisplayOrder int       // Sort key among siblings
	IsActive     bool      // Visibility flag
	CreatedAt    time.Time // Creation time
}

// DocumentStatus is the publication state of a document
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusPublished DocumentStatus = "published"
	StatusArchived  DocumentStatus = "archived"
)

// Valid reports whether s is a known status
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Document is the slice of a knowledge document the taxonomy needs
type Document struct {
	ID           int64
	Title        string
	GenreID      int64
	Status       DocumentStatus
	ViewCount    int
	HelpfulCount int
}

// Repository defines the data access operations of the catalog.
// Genres are written with ids, levels and paths already computed by the
// taxonomy store; the repository only persists them.
type Repository interface {
	// Initialize performs any necessary setup for the repository, such as
	// opening connections and running migrations.
	Initialize(ctx context.Context) error

	// Cleanup releases resources held by the repository.
	Cleanup(ctx context.Context) error

	// CreateGenre persists a genre.
	// Returns ErrDuplicateGenre if the id or path is already stored.
	CreateGenre(ctx context.Context, genre *Genre) error

	// GetGenre retrieves a genre by its ID.
	// Returns ErrGenreNotFound if no genre exists with the given ID.
	GetGenre(ctx context.Context, id int64) (*Genre, error)

	// ListGenres returns every genre ordered by level, display order and id,
	// so parents always precede their children.
	ListGenres(ctx context.Context) ([]*Genre, error)

	// CreateDocument persists a document and returns its ID.
	// Returns ErrGenreNotFound if the referenced genre does not exist.
	CreateDocument(ctx context.Context, doc *Document) (int64, error)

	// ListDocuments returns every document ordered by id.
	ListDocuments(ctx context.Context) ([]*Document, error)

	// ImportCatalog writes genres, parents first, and then documents as one
	// unit. With replace set the existing documents and genres are deleted
	// first. On error nothing is changed. Document IDs are assigned only
	// when the import succeeds.
	ImportCatalog(ctx context.Context, genres []*Genre, docs []*Document, replace bool) error
}

// SchemaRollbacker is implemented by backends with a migrated schema
type SchemaRollbacker interface {
	// RollbackSchema reverts the most recent schema migration.
	RollbackSchema(ctx context.Context) error
}

// Common errors
var (
	// ErrGenreNotFound is returned when a requested genre does not exist
	ErrGenreNotFound = errors.New("genre not found")
	// ErrDuplicateGenre is returned when a genre id or path is already stored
	ErrDuplicateGenre = errors.New("genre already exists")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input")
)

// validateGenre checks the fields every backend requires
func validateGenre(genre *Genre) error {
	if genre == nil || genre.ID <= 0 || genre.Name == "" || genre.Path == "" || genre.Level < 1 {
		return ErrInvalidInput
	}
	return nil
}

// validateDocument checks the fields every backend requires
func validateDocument(doc *Document) error {
	if doc == nil || doc.Title == "" || doc.GenreID <= 0 || !doc.Status.Valid() {
		return ErrInvalidInput
	}
	return nil
}

// validateCatalog checks every row of an import before any is written
func validateCatalog(genres []*Genre, docs []*Document) error {
	for _, genre := range genres {
		if err := validateGenre(genre); err != nil {
			return err
		}
	}
	for _, doc := range docs {
		if err := validateDocument(doc); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// clearCatalog deletes documents before the genres they reference
func clearCatalog(ctx context.Context, q execer) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("error deleting documents: %w", err)
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM genres"); err != nil {
		return fmt.Errorf("error deleting genres: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const genreColumns = "id, name, parent_id, level, path, display_order, is_active, created_at"

const documentColumns = "id, title, genre_id, status, view_count, helpful_count"

func scanGenre(row rowScanner) (*Genre, error) {
	var (
		genre    Genre
		parentID *int64
	)
	if err := row.Scan(
		&genre.ID,
		&genre.Name,
		&parentID,
		&genre.Level,
		&genre.Path,
		&genre.DisplayOrder,
		&genre.IsActive,
		&genre.CreatedAt,
	); err != nil {
		return nil, err
	}
	genre.ParentID = parentID
	return &genre, nil
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc    Document
		status string
	)
	if err := row.Scan(&doc.ID, &doc.Title, &doc.GenreID, &status, &doc.ViewCount, &doc.HelpfulCount); err != nil {
		return nil, err
	}
	doc.Status = DocumentStatus(status)
	return &doc, nil
}
