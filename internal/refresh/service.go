package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"
	"biblomnemon/internal/platform/openlibrary"
)

type Config struct {
	BatchSize     int
	MaxBooks      int
	FreshnessDays int
}

type Service struct {
	olClient OpenLibraryClient
	books    Books
	runs     Repository
	cfg      Config
	log      logging.Logger
	now      func() time.Time
}

func NewService(olClient OpenLibraryClient, books Books, runs Repository, cfg Config, log logging.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxBooks <= 0 {
		cfg.MaxBooks = 200
	}
	return &Service{
		olClient: olClient,
		books:    books,
		runs:     runs,
		cfg:      cfg,
		log:      log.With("component", "refresh"),
		now:      time.Now,
	}
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Run refreshes up to MaxBooks books not updated within FreshnessDays.
// Failures of single books or batches are counted; cancellation ends the run.
func (s *Service) Run(ctx context.Context) (run Run, err error) {
	run = Run{
		Status:              StatusRunning,
		StartedAt:           s.now().UTC(),
		ConfigBatchSize:     s.cfg.BatchSize,
		ConfigMaxBooks:      s.cfg.MaxBooks,
		ConfigFreshnessDays: s.cfg.FreshnessDays,
	}
	if run.ID, err = s.runs.CreateRun(ctx, &run); err != nil {
		return run, fmt.Errorf("create run: %w", err)
	}

	defer func() {
		finished := s.now().UTC()
		run.FinishedAt = &finished
		if err != nil && run.Error == "" {
			run.Error = err.Error()
		}
		if run.Error != "" {
			run.Status = StatusFailed
		} else {
			run.Status = StatusCompleted
		}
		// the run row is closed even when ctx was canceled
		if uerr := s.runs.UpdateRun(context.WithoutCancel(ctx), &run); uerr != nil {
			s.log.Error(ctx, "update refresh run failed", "run_id", run.ID, "error", uerr)
		}
		s.log.Info(ctx, "refresh run finished",
			"run_id", run.ID, "status", run.Status,
			"scanned", run.BooksScanned, "updated", run.BooksUpdated, "failed", run.BooksFailed)
	}()

	cutoff := run.StartedAt.Add(-time.Duration(s.cfg.FreshnessDays) * 24 * time.Hour)
	stale, err := s.books.ListStale(ctx, cutoff, s.cfg.MaxBooks)
	if err != nil {
		return run, fmt.Errorf("list stale books: %w", err)
	}
	run.BooksScanned = len(stale)

	for start := 0; start < len(stale); start += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		end := min(start+s.cfg.BatchSize, len(stale))
		if err := s.hydrateBatch(ctx, &run, stale[start:end]); err != nil {
			return run, err
		}
	}
	return run, nil
}

// hydrateBatch only returns cancellation errors.
func (s *Service) hydrateBatch(ctx context.Context, run *Run, batch []library.Book) error {
	isbns := make([]string, 0, len(batch))
	seen := make(map[string]bool, len(batch))
	for _, b := range batch {
		if !seen[b.ISBN] {
			seen[b.ISBN] = true
			isbns = append(isbns, b.ISBN)
		}
	}

	details, err := s.olClient.GetBooksByISBN(ctx, isbns)
	if err != nil {
		if canceled(err) {
			return err
		}
		s.log.Warn(ctx, "refresh batch failed", "isbns", len(isbns), "error", err)
		run.BooksFailed += len(batch)
		return nil
	}

	for _, b := range batch {
		d, ok := details["ISBN:"+b.ISBN]
		if ok {
			run.BooksFetched++
		}
		changed := ok && fillGaps(&b, d)

		// stamped even when unchanged so the book leaves the stale set
		seen := b.UpdatedAt
		b.UpdatedAt = s.now().UTC()
		if err := s.books.UpdateIfUnchanged(ctx, &b, seen); err != nil {
			if canceled(err) {
				return err
			}
			if errors.Is(err, library.ErrConflict) {
				// edited meanwhile; the user's version wins
				s.log.Info(ctx, "refresh skipped edited book", "book_id", b.ID)
				continue
			}
			s.log.Warn(ctx, "refresh book failed", "book_id", b.ID, "error", err)
			run.BooksFailed++
			continue
		}
		if changed {
			run.BooksUpdated++
		}
	}
	return nil
}

// fillGaps copies remote values into empty fields only and reports whether
// anything changed.
func fillGaps(b *library.Book, d openlibrary.BookDetails) bool {
	changed := false
	if b.Publisher == "" && len(d.Publishers) > 0 {
		names := make([]string, 0, len(d.Publishers))
		for _, p := range d.Publishers {
			if p.Name != "" {
				names = append(names, p.Name)
			}
		}
		if len(names) > 0 {
			b.Publisher = strings.Join(names, ", ")
			changed = true
		}
	}
	if b.PageCount == nil && d.NumberOfPages > 0 {
		n := d.NumberOfPages
		b.PageCount = &n
		changed = true
	}
	if len(b.CoverURLs) == 0 {
		for _, u := range []string{d.Cover.Large, d.Cover.Medium, d.Cover.Small} {
			if u != "" {
				b.CoverURLs = append(b.CoverURLs, u)
			}
		}
		changed = changed || len(b.CoverURLs) > 0
	}
	if b.Description == "" && d.Notes != "" {
		b.Description = string(d.Notes)
		changed = true
	}
	if len(b.Authors) == 0 {
		for _, a := range d.Authors {
			if a.Name != "" {
				b.Authors = append(b.Authors, library.Author{Name: a.Name})
			}
		}
		changed = changed || len(b.Authors) > 0
	}
	return changed
}
