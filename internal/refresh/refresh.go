// Package refresh fills gaps in stored books from Open Library.
package refresh

import (
	"context"
	"time"

	"biblomnemon/internal/library"
	"biblomnemon/internal/platform/openlibrary"
)

const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

type Run struct {
	ID                  string     `json:"id"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at,omitempty"`
	Status              string     `json:"status"`
	ConfigBatchSize     int        `json:"config_batch_size"`
	ConfigMaxBooks      int        `json:"config_max_books"`
	ConfigFreshnessDays int        `json:"config_freshness_days"`
	BooksScanned        int        `json:"books_scanned"`
	BooksFetched        int        `json:"books_fetched"`
	BooksUpdated        int        `json:"books_updated"`
	BooksFailed         int        `json:"books_failed"`
	Error               string     `json:"error,omitempty"`
}

type Repository interface {
	CreateRun(ctx context.Context, run *Run) (string, error)
	UpdateRun(ctx context.Context, run *Run) error
}

// Books is the part of the library the job reads and writes.
type Books interface {
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]library.Book, error)
	// UpdateIfUnchanged returns library.ErrConflict when the book was
	// written after seen.
	UpdateIfUnchanged(ctx context.Context, b *library.Book, seen time.Time) error
}

type OpenLibraryClient interface {
	GetBooksByISBN(ctx context.Context, isbns []string) (map[string]openlibrary.BookDetails, error)
}
