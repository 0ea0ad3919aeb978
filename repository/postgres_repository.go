package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ammiranda/taxonomy_service/config"
	"github.com/ammiranda/taxonomy_service/migrations"

	"github.com/lib/pq"
)

// Postgres error codes we translate
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db     *sql.DB
	config *config.DatabaseConfig
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfgProvider config.Provider) (*PostgresRepository, error) {
	cfg, err := config.GetDatabaseConfig(ctx, cfgProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to get database config: %w", err)
	}

	return &PostgresRepository{
		config: cfg,
	}, nil
}

// Initialize opens the connection pool and migrates the schema
func (r *PostgresRepository) Initialize(ctx context.Context) error {
	db, err := sql.Open("postgres", r.config.DSN())
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("error pinging database: %w", err)
	}

	if err := migrations.Up(db, migrations.Postgres); err != nil {
		db.Close()
		return err
	}

	r.db = db
	return nil
}

// Cleanup closes the database connection
func (r *PostgresRepository) Cleanup(ctx context.Context) error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateGenre inserts a genre row
func (r *PostgresRepository) CreateGenre(ctx context.Context, genre *Genre) error {
	if err := validateGenre(genre); err != nil {
		return err
	}
	return insertPostgresGenre(ctx, r.db, genre)
}

func insertPostgresGenre(ctx context.Context, q execer, genre *Genre) error {
	if genre.CreatedAt.IsZero() {
		genre.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx,
		"INSERT INTO genres ("+genreColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		genre.ID, genre.Name, genre.ParentID, genre.Level, genre.Path,
		genre.DisplayOrder, genre.IsActive, genre.CreatedAt,
	)
	if err != nil {
		return translatePostgresError("error creating genre", err)
	}
	return nil
}

// GetGenre retrieves a genre by ID
func (r *PostgresRepository) GetGenre(ctx context.Context, id int64) (*Genre, error) {
	genre, err := scanGenre(r.db.QueryRowContext(ctx,
		"SELECT "+genreColumns+" FROM genres WHERE id = $1", id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGenreNotFound
		}
		return nil, fmt.Errorf("error getting genre: %w", err)
	}
	return genre, nil
}

// ListGenres retrieves all genres, parents first
func (r *PostgresRepository) ListGenres(ctx context.Context) ([]*Genre, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+genreColumns+" FROM genres ORDER BY level, display_order, id")
	if err != nil {
		return nil, fmt.Errorf("error listing genres: %w", err)
	}
	defer rows.Close()

	var genres []*Genre
	for rows.Next() {
		genre, err := scanGenre(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning genre: %w", err)
		}
		genres = append(genres, genre)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating genres: %w", err)
	}
	return genres, nil
}

// CreateDocument inserts a document row
func (r *PostgresRepository) CreateDocument(ctx context.Context, doc *Document) (int64, error) {
	if err := validateDocument(doc); err != nil {
		return 0, err
	}

	id, err := insertPostgresDocument(ctx, r.db, doc)
	if err != nil {
		return 0, err
	}
	doc.ID = id
	return id, nil
}

func insertPostgresDocument(ctx context.Context, q execer, doc *Document) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		"INSERT INTO documents (title, genre_id, status, view_count, helpful_count) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		doc.Title, doc.GenreID, string(doc.Status), doc.ViewCount, doc.HelpfulCount,
	).Scan(&id)
	if err != nil {
		return 0, translatePostgresError("error creating document", err)
	}
	return id, nil
}

// ListDocuments retrieves all documents
func (r *PostgresRepository) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+documentColumns+" FROM documents ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}

// ImportCatalog writes the catalog in one transaction
func (r *PostgresRepository) ImportCatalog(ctx context.Context, genres []*Genre, docs []*Document, replace bool) error {
	if err := validateCatalog(genres, docs); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if err := clearCatalog(ctx, tx); err != nil {
			return err
		}
	}
	for _, genre := range genres {
		if err := insertPostgresGenre(ctx, tx, genre); err != nil {
			return fmt.Errorf("genre %d: %w", genre.ID, err)
		}
	}
	ids := make([]int64, len(docs))
	for i, doc := range docs {
		if ids[i], err = insertPostgresDocument(ctx, tx, doc); err != nil {
			return fmt.Errorf("document %q: %w", doc.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing catalog: %w", err)
	}
	for i, doc := range docs {
		doc.ID = ids[i]
	}
	return nil
}

// RollbackSchema reverts the latest migration
func (r *PostgresRepository) RollbackSchema(ctx context.Context) error {
	return migrations.Rollback(r.db, migrations.Postgres)
}

// translatePostgresError maps constraint violations to repository errors
func translatePostgresError(msg string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", msg, ErrDuplicateGenre)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", msg, ErrGenreNotFound)
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
