package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ammiranda/taxonomy_service/migrations"

	"github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteRepository creates a new SQLite repository instance. An empty
// path stores the database under ~/.taxonomy.
func NewSQLiteRepository(path string) *SQLiteRepository {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}

		dataDir := filepath.Join(homeDir, ".taxonomy")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			// Fallback to current directory if home directory is not accessible
			dataDir = "."
		}
		path = filepath.Join(dataDir, "taxonomy.db")
	}

	return &SQLiteRepository{
		dbPath: path,
	}
}

// Initialize opens the SQLite database and migrates the schema
func (r *SQLiteRepository) Initialize(ctx context.Context) error {
	db, err := sql.Open("sqlite3", "file:"+r.dbPath+"?_foreign_keys=on")
	if err != nil {
		return fmt.Errorf("error opening sqlite database: %w", err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error opening sqlite database: %w", err)
	}
	if err := migrations.Up(db, migrations.SQLite); err != nil {
		db.Close()
		return err
	}

	r.db = db
	return nil
}

// Cleanup closes the database connection
func (r *SQLiteRepository) Cleanup(ctx context.Context) error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateGenre inserts a genre row
func (r *SQLiteRepository) CreateGenre(ctx context.Context, genre *Genre) error {
	if err := validateGenre(genre); err != nil {
		return err
	}
	return insertSQLiteGenre(ctx, r.db, genre)
}

func insertSQLiteGenre(ctx context.Context, q execer, genre *Genre) error {
	if genre.CreatedAt.IsZero() {
		genre.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx,
		"INSERT INTO genres ("+genreColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		genre.ID, genre.Name, genre.ParentID, genre.Level, genre.Path,
		genre.DisplayOrder, genre.IsActive, genre.CreatedAt,
	)
	if err != nil {
		return translateSQLiteError("error creating genre", err)
	}
	return nil
}

// GetGenre retrieves a genre by ID
func (r *SQLiteRepository) GetGenre(ctx context.Context, id int64) (*Genre, error) {
	genre, err := scanGenre(r.db.QueryRowContext(ctx,
		"SELECT "+genreColumns+" FROM genres WHERE id = ?", id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenreNotFound
		}
		return nil, err
	}
	return genre, nil
}

// ListGenres retrieves all genres, parents first
func (r *SQLiteRepository) ListGenres(ctx context.Context) ([]*Genre, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+genreColumns+" FROM genres ORDER BY level, display_order, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var genres []*Genre
	for rows.Next() {
		genre, err := scanGenre(rows)
		if err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

// CreateDocument inserts a document row
func (r *SQLiteRepository) CreateDocument(ctx context.Context, doc *Document) (int64, error) {
	if err := validateDocument(doc); err != nil {
		return 0, err
	}

	id, err := insertSQLiteDocument(ctx, r.db, doc)
	if err != nil {
		return 0, err
	}
	doc.ID = id
	return id, nil
}

func insertSQLiteDocument(ctx context.Context, q execer, doc *Document) (int64, error) {
	result, err := q.ExecContext(ctx,
		"INSERT INTO documents (title, genre_id, status, view_count, helpful_count) VALUES (?, ?, ?, ?, ?)",
		doc.Title, doc.GenreID, string(doc.Status), doc.ViewCount, doc.HelpfulCount,
	)
	if err != nil {
		return 0, translateSQLiteError("error creating document", err)
	}
	return result.LastInsertId()
}

// ListDocuments retrieves all documents
func (r *SQLiteRepository) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// ImportCatalog writes the catalog in one transaction
func (r *SQLiteRepository) ImportCatalog(ctx context.Context, genres []*Genre, docs []*Document, replace bool) error {
	if err := validateCatalog(genres, docs); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if replace {
		if err := clearCatalog(ctx, tx); err != nil {
			return err
		}
	}
	for _, genre := range genres {
		if err := insertSQLiteGenre(ctx, tx, genre); err != nil {
			return fmt.Errorf("genre %d: %w", genre.ID, err)
		}
	}
	ids := make([]int64, len(docs))
	for i, doc := range docs {
		if ids[i], err = insertSQLiteDocument(ctx, tx, doc); err != nil {
			return fmt.Errorf("document %q: %w", doc.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	for i, doc := range docs {
		doc.ID = ids[i]
	}
	return nil
}

// RollbackSchema reverts the latest migration
func (r *SQLiteRepository) RollbackSchema(ctx context.Context) error {
	return migrations.Rollback(r.db, migrations.SQLite)
}

// translateSQLiteError maps constraint violations to repository errors
func translateSQLiteError(msg string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return fmt.Errorf("%s: %w", msg, ErrDuplicateGenre)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w", msg, ErrGenreNotFound)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
