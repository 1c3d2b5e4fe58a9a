package refresh

import (
	"context"
	"time"

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

func (r *PostgresRepo) CreateRun(ctx context.Context, run *Run) (string, error) {
	const sql = `
		INSERT INTO refresh_runs (started_at, status, config_batch_size, config_max_books, config_freshness_days)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	var id string
	err := r.db.QueryRow(ctx, sql,
		run.StartedAt, run.Status, run.ConfigBatchSize, run.ConfigMaxBooks, run.ConfigFreshnessDays,
	).Scan(&id)
	return id, err
}

func (r *PostgresRepo) UpdateRun(ctx context.Context, run *Run) error {
	const sql = `
		UPDATE refresh_runs SET
			finished_at = $1,
			status = $2,
			books_scanned = $3,
			books_fetched = $4,
			books_updated = $5,
			books_failed = $6,
			error = NULLIF($7, '')
		WHERE id = $8`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	_, err := r.db.Exec(ctx, sql,
		run.FinishedAt, run.Status, run.BooksScanned, run.BooksFetched,
		run.BooksUpdated, run.BooksFailed, run.Error, run.ID,
	)
	return err
}
