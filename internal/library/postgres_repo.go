package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
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

const bookColumns = `b.id, b.source, b.title, COALESCE(b.description, ''),
	COALESCE(b.authors, '[]'::jsonb), COALESCE(b.isbn, ''), COALESCE(b.language, ''),
	COALESCE(b.cover_urls, '{}'), b.publish_year, COALESCE(b.publisher, ''), b.page_count,
	b.created_at, b.updated_at`

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Source, &b.Title, &b.Description,
		&b.Authors, &b.ISBN, &b.Language,
		&b.CoverURLs, &b.PublishYear, &b.Publisher, &b.PageCount,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if len(b.Authors) == 0 {
		b.Authors = nil
	}
	if len(b.CoverURLs) == 0 {
		b.CoverURLs = nil
	}
	return b, err
}

func scanBooks(rows pgx.Rows) ([]Book, error) {
	defer rows.Close()
	var out []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	clauses := []string{"1=1"}
	args := []any{}
	argn := 1

	if q.Source != "" {
		clauses = append(clauses, fmt.Sprintf("b.source = $%d", argn))
		args = append(args, string(q.Source))
		argn++
	}

	if q.Q != "" {
		clauses = append(clauses, fmt.Sprintf(`(b.title ILIKE $%[1]d ESCAPE '\' OR b.isbn ILIKE $%[1]d ESCAPE '\'
			OR b.publisher ILIKE $%[1]d ESCAPE '\'
			OR EXISTS (SELECT 1 FROM jsonb_array_elements(COALESCE(b.authors, '[]'::jsonb)) a WHERE a->>'name' ILIKE $%[1]d ESCAPE '\'))`, argn))
		args = append(args, "%"+escapeLike(q.Q)+"%")
		argn++
	}

	where := "WHERE " + strings.Join(clauses, " AND ")

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM books b "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := fmt.Sprintf(`
		SELECT %s
		FROM books b
		%s
		ORDER BY b.created_at DESC, b.id ASC
		LIMIT $%d OFFSET $%d`,
		bookColumns, where, argn, argn+1)

	rows, err := r.db.Query(ctx, dataSQL, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanBooks(rows)
	return out, total, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(ctx, `SELECT `+bookColumns+` FROM books b WHERE b.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	return b, err
}

func (r *PostgresRepo) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(ctx, `
		SELECT `+bookColumns+`
		FROM books b
		WHERE b.isbn = $1
		ORDER BY b.updated_at DESC
		LIMIT 1`, isbn))
	if errors.Is(err, pgx.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	return b, err
}

func authorsParam(authors []Author) []Author {
	if authors == nil {
		return []Author{}
	}
	return authors
}

func coversParam(covers []string) []string {
	if covers == nil {
		return []string{}
	}
	return covers
}

func (r *PostgresRepo) Upsert(ctx context.Context, b *Book) error {
	const sql = `
		INSERT INTO books (id, source, title, description, authors, isbn, language,
		                   cover_urls, publish_year, publisher, page_count, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''),
		        $8, $9, NULLIF($10, ''), $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			authors = EXCLUDED.authors,
			isbn = EXCLUDED.isbn,
			language = EXCLUDED.language,
			cover_urls = EXCLUDED.cover_urls,
			publish_year = EXCLUDED.publish_year,
			publisher = EXCLUDED.publisher,
			page_count = EXCLUDED.page_count,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(ctx, sql,
		b.ID, string(b.Source), b.Title, b.Description, authorsParam(b.Authors), b.ISBN, b.Language,
		coversParam(b.CoverURLs), b.PublishYear, b.Publisher, b.PageCount, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, b *Book) error {
	const sql = `
		UPDATE books SET
			source = $2, title = $3, description = NULLIF($4, ''), authors = $5,
			isbn = NULLIF($6, ''), language = NULLIF($7, ''), cover_urls = $8,
			publish_year = $9, publisher = NULLIF($10, ''), page_count = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING created_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(ctx, sql,
		b.ID, string(b.Source), b.Title, b.Description, authorsParam(b.Authors), b.ISBN, b.Language,
		coversParam(b.CoverURLs), b.PublishYear, b.Publisher, b.PageCount, b.UpdatedAt,
	).Scan(&b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// UpdateIfUnchanged writes b only while the stored updated_at still equals
// seen. Otherwise it returns ErrConflict and leaves the row alone.
func (r *PostgresRepo) UpdateIfUnchanged(ctx context.Context, b *Book, seen time.Time) error {
	const sql = `
		UPDATE books SET
			source = $2, title = $3, description = NULLIF($4, ''), authors = $5,
			isbn = NULLIF($6, ''), language = NULLIF($7, ''), cover_urls = $8,
			publish_year = $9, publisher = NULLIF($10, ''), page_count = $11,
			updated_at = $12
		WHERE id = $1 AND updated_at = $13
		RETURNING created_at`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(ctx, sql,
		b.ID, string(b.Source), b.Title, b.Description, authorsParam(b.Authors), b.ISBN, b.Language,
		coversParam(b.CoverURLs), b.PublishYear, b.Publisher, b.PageCount, b.UpdatedAt, seen,
	).Scan(&b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(ctx, `
		SELECT `+bookColumns+`
		FROM books b
		WHERE b.isbn IS NOT NULL AND b.updated_at < $1
		ORDER BY b.updated_at ASC
		LIMIT $2`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	return scanBooks(rows)
}
