package activity

import (
	"context"
	"errors"
	"time"

	"biblomnemon/internal/library"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return ErrBookNotFound
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

const selectSQL = `
	SELECT a.id, a.book_id, COALESCE(a.title, ''), COALESCE(a.description, ''),
	       a.started, a.ended, a.pages_read, a.created_at, a.updated_at,
	       b.source, b.title, b.isbn, COALESCE(b.authors, '[]'::jsonb), COALESCE(b.cover_urls, '{}')
	FROM reading_activity a
	LEFT JOIN books b ON b.id = a.book_id`

func scanActivity(row pgx.Row) (ReadingActivity, error) {
	var (
		a          ReadingActivity
		bookSource *string
		bookTitle  *string
		bookISBN   *string
		authors    []library.Author
		covers     []string
	)
	err := row.Scan(
		&a.ID, &a.BookID, &a.Title, &a.Description,
		&a.Started, &a.Ended, &a.PagesRead, &a.CreatedAt, &a.UpdatedAt,
		&bookSource, &bookTitle, &bookISBN, &authors, &covers,
	)
	if err != nil {
		return ReadingActivity{}, err
	}
	if a.BookID != nil && bookTitle != nil {
		b := &library.Book{ID: *a.BookID, Title: *bookTitle}
		if bookSource != nil {
			b.Source = library.Source(*bookSource)
		}
		if bookISBN != nil {
			b.ISBN = *bookISBN
		}
		if len(authors) > 0 {
			b.Authors = authors
		}
		if len(covers) > 0 {
			b.CoverURLs = covers
		}
		a.Book = b
	}
	return a, nil
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]ReadingActivity, int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reading_activity`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, selectSQL+`
		ORDER BY a.started DESC, a.id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ReadingActivity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (ReadingActivity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	a, err := scanActivity(r.db.QueryRow(ctx, selectSQL+` WHERE a.id = $1`, id))
	if err != nil {
		return ReadingActivity{}, mapError(err)
	}
	return a, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, a *ReadingActivity) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(ctx, `
		INSERT INTO reading_activity (book_id, title, description, started, ended, pages_read, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8)
		RETURNING id`,
		a.BookID, a.Title, a.Description, a.Started, a.Ended, a.PagesRead, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	return mapError(err)
}

func (r *PostgresRepo) Update(ctx context.Context, a *ReadingActivity) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(ctx, `
		UPDATE reading_activity SET
			book_id = $2, title = NULLIF($3, ''), description = NULLIF($4, ''),
			started = $5, ended = $6, pages_read = $7, updated_at = $8
		WHERE id = $1
		RETURNING created_at`,
		a.ID, a.BookID, a.Title, a.Description, a.Started, a.Ended, a.PagesRead, a.UpdatedAt,
	).Scan(&a.CreatedAt)
	return mapError(err)
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(ctx, `DELETE FROM reading_activity WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Restore(ctx context.Context, a ReadingActivity) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO reading_activity (id, book_id, title, description, started, ended, pages_read, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			book_id = EXCLUDED.book_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			started = EXCLUDED.started,
			ended = EXCLUDED.ended,
			pages_read = EXCLUDED.pages_read,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`,
		a.ID, a.BookID, a.Title, a.Description, a.Started, a.Ended, a.PagesRead, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('reading_activity', 'id'),
		GREATEST((SELECT MAX(id) FROM reading_activity), 1))`); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
