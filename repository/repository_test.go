package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

// exerciseRepository runs the behaviour every backend must share
func exerciseRepository(t *testing.T, repo Repository) {
	ctx := context.Background()

	// Test creating genres out of display order
	require.NoError(t, repo.CreateGenre(ctx, &Genre{ID: 1, Name: "Manga", Level: 1, Path: "1", DisplayOrder: 2, IsActive: true}))
	require.NoError(t, repo.CreateGenre(ctx, &Genre{ID: 12, Name: "Novels", Level: 1, Path: "12", DisplayOrder: 1, IsActive: true}))
	require.NoError(t, repo.CreateGenre(ctx, &Genre{ID: 6, Name: "Shonen", ParentID: int64Ptr(1), Level: 2, Path: "1/6", DisplayOrder: 1, IsActive: false}))

	// Test getting a genre
	genre, err := repo.GetGenre(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "Shonen", genre.Name)
	require.NotNil(t, genre.ParentID)
	assert.Equal(t, int64(1), *genre.ParentID)
	assert.False(t, genre.IsActive)
	assert.False(t, genre.CreatedAt.IsZero())

	root, err := repo.GetGenre(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)

	_, err = repo.GetGenre(ctx, 999)
	assert.True(t, errors.Is(err, ErrGenreNotFound))

	// Test listing: level first, then display order
	genres, err := repo.ListGenres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 3)
	assert.Equal(t, []int64{12, 1, 6}, []int64{genres[0].ID, genres[1].ID, genres[2].ID})

	// Test duplicates
	err = repo.CreateGenre(ctx, &Genre{ID: 1, Name: "Again", Level: 1, Path: "99"})
	assert.True(t, errors.Is(err, ErrDuplicateGenre), "duplicate id: %v", err)
	err = repo.CreateGenre(ctx, &Genre{ID: 50, Name: "Again", Level: 1, Path: "1"})
	assert.True(t, errors.Is(err, ErrDuplicateGenre), "duplicate path: %v", err)

	// Test invalid input
	assert.Equal(t, ErrInvalidInput, repo.CreateGenre(ctx, &Genre{ID: 0, Name: "x", Level: 1, Path: "0"}))
	assert.Equal(t, ErrInvalidInput, repo.CreateGenre(ctx, nil))

	// Test documents
	id, err := repo.CreateDocument(ctx, &Document{Title: "Guide", GenreID: 6, Status: StatusPublished, ViewCount: 10, HelpfulCount: 2})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))
	_, err = repo.CreateDocument(ctx, &Document{Title: "Draft", GenreID: 12, Status: StatusDraft})
	require.NoError(t, err)

	_, err = repo.CreateDocument(ctx, &Document{Title: "Orphan", GenreID: 404, Status: StatusPublished})
	assert.True(t, errors.Is(err, ErrGenreNotFound), "unknown genre: %v", err)
	_, err = repo.CreateDocument(ctx, &Document{Title: "Bad", GenreID: 6, Status: "deleted"})
	assert.Equal(t, ErrInvalidInput, err)

	docs, err := repo.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Guide", docs[0].Title)
	assert.Equal(t, StatusPublished, docs[0].Status)
	assert.Equal(t, 10, docs[0].ViewCount)
	assert.Equal(t, 2, docs[0].HelpfulCount)
	assert.Equal(t, StatusDraft, docs[1].Status)

	// Test a failing import changes nothing
	broken := []*Document{
		{Title: "Kept", GenreID: 30, Status: StatusPublished},
		{Title: "Orphan", GenreID: 404, Status: StatusPublished},
	}
	err = repo.ImportCatalog(ctx, []*Genre{
		{ID: 1, Name: "Manga", Level: 1, Path: "1", IsActive: true},
		{ID: 30, Name: "Seinen", ParentID: int64Ptr(1), Level: 2, Path: "1/30", IsActive: true},
	}, broken, true)
	assert.True(t, errors.Is(err, ErrGenreNotFound), "orphan document: %v", err)
	assert.Zero(t, broken[0].ID)

	genres, err = repo.ListGenres(ctx)
	require.NoError(t, err)
	assert.Len(t, genres, 3)
	_, err = repo.GetGenre(ctx, 30)
	assert.True(t, errors.Is(err, ErrGenreNotFound))
	_, err = repo.GetGenre(ctx, 6)
	assert.NoError(t, err)
	docs, err = repo.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	err = repo.ImportCatalog(ctx, []*Genre{{ID: 1, Name: "Manga", Level: 1, Path: "1"}}, nil, false)
	assert.True(t, errors.Is(err, ErrDuplicateGenre), "import without replace: %v", err)

	// Test replacing the catalog
	imported := []*Document{{Title: "Intro", GenreID: 3, Status: StatusPublished, ViewCount: 4}}
	require.NoError(t, repo.ImportCatalog(ctx, []*Genre{
		{ID: 2, Name: "Comics", Level: 1, Path: "2", IsActive: true},
		{ID: 3, Name: "Webcomics", ParentID: int64Ptr(2), Level: 2, Path: "2/3", IsActive: true},
	}, imported, true))
	assert.Greater(t, imported[0].ID, int64(0))

	genres, err = repo.ListGenres(ctx)
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, []int64{2, 3}, []int64{genres[0].ID, genres[1].ID})
	docs, err = repo.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Intro", docs[0].Title)
	assert.Equal(t, imported[0].ID, docs[0].ID)

	assert.Equal(t, ErrInvalidInput, repo.ImportCatalog(ctx, []*Genre{{ID: 9, Level: 1, Path: "9"}}, nil, true))
	_, err = repo.GetGenre(ctx, 2)
	assert.NoError(t, err)
}

func TestMockRepository(t *testing.T) {
	repo := NewMockRepository()
	require.NoError(t, repo.Initialize(context.Background()))
	defer repo.Cleanup(context.Background())

	exerciseRepository(t, repo)
}

func TestMockRepositoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	require.NoError(t, repo.CreateGenre(ctx, &Genre{ID: 1, Name: "Manga", Level: 1, Path: "1"}))

	genre, err := repo.GetGenre(ctx, 1)
	require.NoError(t, err)
	genre.Name = "changed"

	again, err := repo.GetGenre(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Manga", again.Name)
}

func TestMockRepositorySetError(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	boom := errors.New("connection refused")
	repo.SetError(boom)

	assert.Equal(t, boom, repo.Initialize(ctx))
	_, err := repo.ListGenres(ctx)
	assert.Equal(t, boom, err)

	repo.SetError(nil)
	_, err = repo.ListGenres(ctx)
	assert.NoError(t, err)
}

func TestSQLiteRepository(t *testing.T) {
	repo := NewSQLiteRepository(filepath.Join(t.TempDir(), "taxonomy.db"))
	if err := repo.Initialize(context.Background()); err != nil {
		// go-sqlite3 needs cgo
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer repo.Cleanup(context.Background())

	exerciseRepository(t, repo)
}

func TestSQLiteRollbackSchema(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(filepath.Join(t.TempDir(), "taxonomy.db"))
	if err := repo.Initialize(ctx); err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer repo.Cleanup(ctx)

	var rollbacker SchemaRollbacker = repo
	require.NoError(t, rollbacker.RollbackSchema(ctx))

	_, err := repo.ListDocuments(ctx)
	assert.Error(t, err)
	_, err = repo.ListGenres(ctx)
	assert.NoError(t, err)
}
