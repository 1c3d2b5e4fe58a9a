package library

import (
	"context"
	"testing"
	"time"

	"biblomnemon/internal/category"
	"biblomnemon/internal/testutil"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBookRepo(t *testing.T) (*PostgresRepo, *pgxpool.Pool) {
	t.Helper()
	pool := testutil.PostgresPool(t)
	return NewPostgresRepo(pool, 5*time.Second), pool
}

func storedBook(id, title, isbn string, at time.Time) *Book {
	return &Book{
		ID:        id,
		Source:    SourceManual,
		Title:     title,
		ISBN:      isbn,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestPostgresRepo_UpsertThenGet(t *testing.T) {
	repo, _ := setupBookRepo(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)
	year, pages := 1965, 412

	b := &Book{
		ID:          "OL893415W",
		Source:      SourceOpenLibrary,
		Title:       "Dune",
		Description: "Desert planet.",
		Authors:     []Author{{Name: "Frank Herbert"}},
		ISBN:        "9780441013593",
		Language:    "en",
		CoverURLs:   []string{"https://covers.openlibrary.org/b/id/1-L.jpg"},
		PublishYear: &year,
		Publisher:   "Chilton",
		PageCount:   &pages,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, repo.Upsert(ctx, b))

	got, err := repo.GetByID(ctx, "OL893415W")
	require.NoError(t, err)
	assert.Equal(t, SourceOpenLibrary, got.Source)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, []Author{{Name: "Frank Herbert"}}, got.Authors)
	assert.Equal(t, b.CoverURLs, got.CoverURLs)
	assert.Equal(t, 1965, *got.PublishYear)
	assert.Equal(t, 412, *got.PageCount)
	assert.True(t, at.Equal(got.CreatedAt))

	b.Title = "Dune (Deluxe)"
	require.NoError(t, repo.Upsert(ctx, b))
	got, err = repo.GetByID(ctx, "OL893415W")
	require.NoError(t, err)
	assert.Equal(t, "Dune (Deluxe)", got.Title)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepo_UpsertWithoutCoversOrAuthors(t *testing.T) {
	repo, _ := setupBookRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, storedBook("m1", "Notebook", "", time.Now().UTC())))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got.CoverURLs)
	assert.Nil(t, got.Authors)
	assert.Empty(t, got.ISBN)
}

func TestPostgresRepo_GetByISBN_MatchesISBNColumn(t *testing.T) {
	repo, _ := setupBookRepo(t)
	ctx := context.Background()
	at := time.Now().UTC()

	// the id of one book equals the isbn searched for; only the isbn column counts
	require.NoError(t, repo.Upsert(ctx, storedBook("9780306406157", "Wrong", "", at)))
	require.NoError(t, repo.Upsert(ctx, storedBook("b-signals", "Signals", "9780306406157", at)))

	got, err := repo.GetByISBN(ctx, "9780306406157")
	require.NoError(t, err)
	assert.Equal(t, "b-signals", got.ID)

	_, err = repo.GetByISBN(ctx, "9780000000002")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresRepo_ListSearch(t *testing.T) {
	repo, _ := setupBookRepo(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	dune := storedBook("a", "Dune", "9780441013593", base)
	dune.Authors = []Author{{Name: "Frank Herbert"}}
	hobbit := storedBook("b", "The Hobbit", "9780547928227", base.Add(time.Minute))
	hobbit.Authors = []Author{{Name: "J. R. R. Tolkien"}}
	hobbit.Source = SourceGoogle
	percent := storedBook("c", "100% Recall", "", base.Add(2*time.Minute))
	for _, b := range []*Book{dune, hobbit, percent} {
		require.NoError(t, repo.Upsert(ctx, b))
	}

	t.Run("newest first", func(t *testing.T) {
		got, total, err := repo.List(ctx, Query{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("author name", func(t *testing.T) {
		got, total, err := repo.List(ctx, Query{Q: "tolkien", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("isbn fragment", func(t *testing.T) {
		got, _, err := repo.List(ctx, Query{Q: "0441013", Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ID)
	})

	t.Run("wildcards match literally", func(t *testing.T) {
		got, total, err := repo.List(ctx, Query{Q: "%", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, got, 1)
		assert.Equal(t, "c", got[0].ID)

		_, total, err = repo.List(ctx, Query{Q: "_", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("source filter and paging", func(t *testing.T) {
		got, total, err := repo.List(ctx, Query{Source: SourceManual, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, got, 1)
		assert.Equal(t, "a", got[0].ID)
	})
}

func TestPostgresRepo_DeleteCascades(t *testing.T) {
	repo, pool := setupBookRepo(t)
	ctx := context.Background()
	cats := category.NewPostgresRepo(pool, 5*time.Second)

	require.NoError(t, repo.Upsert(ctx, storedBook("gone", "Gone", "", time.Now().UTC())))
	c := &category.Category{Title: "Poetry", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	require.NoError(t, cats.Insert(ctx, c))
	require.NoError(t, cats.AddRelation(ctx, "gone", c.ID))

	var activityID int64
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO reading_activity (book_id, started) VALUES ('gone', NOW()) RETURNING id`).Scan(&activityID))

	require.NoError(t, repo.Delete(ctx, "gone"))
	assert.ErrorIs(t, repo.Delete(ctx, "gone"), ErrNotFound)

	rels, err := cats.Relations(ctx)
	require.NoError(t, err)
	assert.Empty(t, rels)

	var bookID *string
	require.NoError(t, pool.QueryRow(ctx, `SELECT book_id FROM reading_activity WHERE id = $1`, activityID).Scan(&bookID))
	assert.Nil(t, bookID)

	_, err = cats.GetByID(ctx, c.ID)
	assert.NoError(t, err, "categories outlive their books")
}

func TestPostgresRepo_Update(t *testing.T) {
	repo, _ := setupBookRepo(t)
	ctx := context.Background()
	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)

	b := storedBook("u1", "Draft", "", created)
	require.NoError(t, repo.Upsert(ctx, b))

	b.Title = "Final"
	b.CreatedAt = time.Time{}
	b.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, b))
	assert.True(t, created.Equal(b.CreatedAt))

	assert.ErrorIs(t, repo.Update(ctx, storedBook("nope", "x", "", time.Now())), ErrNotFound)
}

func TestPostgresRepo_UpdateIfUnchanged(t *testing.T) {
	repo, _ := setupBookRepo(t)
	ctx := context.Background()
	read := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Microsecond)

	require.NoError(t, repo.Upsert(ctx, storedBook("r1", "Stale", "9780441013593", read)))

	b, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)

	// a user edit lands between the read and the conditional write
	edited := b
	edited.Publisher = "Mine"
	edited.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, &edited))

	b.Publisher = "Theirs"
	b.UpdatedAt = time.Now().UTC()
	assert.ErrorIs(t, repo.UpdateIfUnchanged(ctx, &b, read), ErrConflict)

	got, err := repo.GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Mine", got.Publisher)

	got.Language = "en"
	seen := got.UpdatedAt
	got.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpdateIfUnchanged(ctx, &got, seen))
}

func TestPostgresRepo_ListStale(t *testing.T) {
	repo, _ := setupBookRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, storedBook("old", "Old", "9780441013593", now.Add(-40*24*time.Hour))))
	require.NoError(t, repo.Upsert(ctx, storedBook("older", "Older", "9780547928227", now.Add(-50*24*time.Hour))))
	require.NoError(t, repo.Upsert(ctx, storedBook("fresh", "Fresh", "9780141439518", now)))
	require.NoError(t, repo.Upsert(ctx, storedBook("noisbn", "No ISBN", "", now.Add(-60*24*time.Hour))))

	got, err := repo.ListStale(ctx, now.Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "older", got[0].ID)
	assert.Equal(t, "old", got[1].ID)

	got, err = repo.ListStale(ctx, now.Add(-30*24*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
