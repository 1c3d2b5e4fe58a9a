package category

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
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
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicate
		case pgForeignKeyViolation:
			return ErrNotFound
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func scanCategories(rows pgx.Rows) ([]Category, error) {
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context, limit, offset int) ([]Category, int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, title, created_at, updated_at
		FROM categories
		ORDER BY title ASC, id ASC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanCategories(rows)
	return out, total, err
}

func (r *PostgresRepo) ListByBookID(ctx context.Context, bookID string, limit, offset int) ([]Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at
		FROM categories c
		JOIN book_category_relations bc ON bc.category_id = c.id
		WHERE bc.book_id = $1
		ORDER BY c.title ASC
		LIMIT $2 OFFSET $3`, bookID, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanCategories(rows)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var c Category
	err := r.db.QueryRow(ctx, `
		SELECT id, title, created_at, updated_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Category{}, mapError(err)
	}
	return c, nil
}

func (r *PostgresRepo) FindByTitle(ctx context.Context, title string) (Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var c Category
	err := r.db.QueryRow(ctx, `
		SELECT id, title, created_at, updated_at FROM categories WHERE lower(title) = lower($1)`, title,
	).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Category{}, mapError(err)
	}
	return c, nil
}

func (r *PostgresRepo) Insert(ctx context.Context, c *Category) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (title, created_at, updated_at)
		VALUES ($1, $2, $3)
		RETURNING id`, c.Title, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	return mapError(err)
}

func (r *PostgresRepo) Update(ctx context.Context, c *Category) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE categories SET title = $2, updated_at = $3 WHERE id = $1`,
		c.ID, c.Title, c.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Restore(ctx context.Context, c Category) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existing int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM categories WHERE lower(title) = lower($1) AND id <> $2`, c.Title, c.ID,
	).Scan(&existing)
	switch {
	case err == nil:
		return existing, tx.Commit(ctx)
	case !errors.Is(err, pgx.ErrNoRows):
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO categories (id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at`,
		c.ID, c.Title, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return 0, mapError(err)
	}
	_, err = tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('categories', 'id'), GREATEST((SELECT MAX(id) FROM categories), 1))`)
	if err != nil {
		return 0, err
	}
	return c.ID, tx.Commit(ctx)
}

func (r *PostgresRepo) AddRelation(ctx context.Context, bookID string, categoryID int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO book_category_relations (book_id, category_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, bookID, categoryID)
	return mapError(err)
}

func (r *PostgresRepo) RemoveRelation(ctx context.Context, bookID string, categoryID int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		DELETE FROM book_category_relations WHERE book_id = $1 AND category_id = $2`, bookID, categoryID)
	return err
}

func (r *PostgresRepo) ClearBook(ctx context.Context, bookID string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM book_category_relations WHERE book_id = $1`, bookID)
	return err
}

func (r *PostgresRepo) Relations(ctx context.Context) ([]Relation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT book_id, category_id FROM book_category_relations ORDER BY book_id, category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Relation
	for rows.Next() {
		var rel Relation
		if err := rows.Scan(&rel.BookID, &rel.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
