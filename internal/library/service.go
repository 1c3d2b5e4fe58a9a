package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"biblomnemon/internal/isbn"

	"github.com/google/uuid"
)

const DefaultLimit = 20

// Service provides book-related business logic.
type Service struct {
	repo       Repository
	categories Categories
	remote     RemoteFinder
	now        func() time.Time
}

// NewService creates a new book service. remote may be nil, in which case
// imports fail with ErrSourceUnavailable.
func NewService(repo Repository, categories Categories, remote RemoteFinder) *Service {
	return &Service{repo: repo, categories: categories, remote: remote, now: time.Now}
}

// List returns a list of books matching the query, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Q = strings.TrimSpace(q.Q)
	return s.repo.List(ctx, q)
}

// Get returns a book with its categories.
func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	return s.withCategories(ctx, b)
}

// GetByISBN returns a book by its normalized ISBN, with its categories.
func (s *Service) GetByISBN(ctx context.Context, code string) (Book, error) {
	n := isbn.Normalize(code)
	if !isbn.Valid(n) {
		return Book{}, ErrInvalidISBN
	}
	b, err := s.repo.GetByISBN(ctx, n)
	if errors.Is(err, ErrNotFound) && len(n) == 13 {
		// stored ISBN-10s are matched against scanned EAN-13 barcodes
		if alt, convErr := isbn.ToISBN10(n); convErr == nil {
			b, err = s.repo.GetByISBN(ctx, alt)
		}
	}
	if err != nil {
		return Book{}, err
	}
	return s.withCategories(ctx, b)
}

func (s *Service) withCategories(ctx context.Context, b Book) (Book, error) {
	if s.categories == nil {
		return b, nil
	}
	cats, err := s.categories.ListByBook(ctx, b.ID, 0, 0)
	if err != nil {
		return Book{}, fmt.Errorf("load categories of %s: %w", b.ID, err)
	}
	b.Categories = cats
	return b, nil
}

// normalize checks the identity fields of b and cleans its ISBN.
func normalize(b *Book) error {
	if b.Source == "" {
		b.Source = SourceManual
	}
	if _, err := ParseSource(string(b.Source)); err != nil {
		return err
	}
	b.ID = strings.TrimSpace(b.ID)
	b.Title = strings.TrimSpace(b.Title)
	if b.ISBN != "" {
		b.ISBN = isbn.Normalize(b.ISBN)
		if !isbn.Valid(b.ISBN) {
			return ErrInvalidISBN
		}
	}
	return nil
}

// Create stores a new book. Manual books without an id get a random UUID;
// books from other sources must keep their remote id. An existing book with
// the same id is replaced.
func (s *Service) Create(ctx context.Context, b Book) (Book, error) {
	if err := normalize(&b); err != nil {
		return Book{}, err
	}
	if b.ID == "" {
		if b.Source != SourceManual {
			return Book{}, ErrInvalidID
		}
		b.ID = uuid.NewString()
	}
	now := s.now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Categories = nil
	if err := s.repo.Upsert(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update replaces the stored fields of an existing book.
func (s *Service) Update(ctx context.Context, b Book) (Book, error) {
	if err := normalize(&b); err != nil {
		return Book{}, err
	}
	if b.ID == "" {
		return Book{}, ErrInvalidID
	}
	b.UpdatedAt = s.now().UTC()
	b.Categories = nil
	if err := s.repo.Update(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Delete removes a book. Category relations go with it; reading activities
// keep their history without the link.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ImportRequest names the book to import by ISBN or by "SOURCE:id".
type ImportRequest struct {
	ISBN     string
	RemoteID string
}

// Import resolves a book through the remote sources and saves it with its
// categories. A book already saved under the same ISBN is returned as is,
// with created set to false.
func (s *Service) Import(ctx context.Context, req ImportRequest) (b Book, created bool, err error) {
	if s.remote == nil {
		return Book{}, false, ErrSourceUnavailable
	}

	var remote Book
	if code := strings.TrimSpace(req.ISBN); code != "" {
		existing, err := s.GetByISBN(ctx, code)
		switch {
		case err == nil:
			return existing, false, nil
		case !errors.Is(err, ErrNotFound):
			return Book{}, false, err
		}
		remote, err = s.remote.GetByISBN(ctx, isbn.Normalize(code))
		if err != nil {
			return Book{}, false, err
		}
	} else {
		remote, err = s.remote.GetByID(ctx, strings.TrimSpace(req.RemoteID))
		if err != nil {
			return Book{}, false, err
		}
	}

	titles := remote.Categories
	b, err = s.Create(ctx, remote)
	if err != nil {
		return Book{}, false, err
	}
	if s.categories == nil {
		return b, true, nil
	}

	for _, c := range titles {
		cat, err := s.categories.Ensure(ctx, c.Title)
		if err != nil {
			return Book{}, false, fmt.Errorf("ensure category %q: %w", c.Title, err)
		}
		if err := s.categories.Link(ctx, b.ID, cat.ID); err != nil {
			return Book{}, false, fmt.Errorf("link category %q: %w", c.Title, err)
		}
		b.Categories = append(b.Categories, cat)
	}
	return b, true, nil
}

// Restore upserts books as given, keeping their ids and timestamps.
func (s *Service) Restore(ctx context.Context, books []Book) error {
	for i := range books {
		b := books[i]
		b.Categories = nil
		if err := s.repo.Upsert(ctx, &b); err != nil {
			return fmt.Errorf("restore book %s: %w", b.ID, err)
		}
	}
	return nil
}

// All pages through every stored book.
func (s *Service) All(ctx context.Context) ([]Book, error) {
	const page = 500
	var out []Book
	for offset := 0; ; offset += page {
		books, total, err := s.repo.List(ctx, Query{Limit: page, Offset: offset})
		if err != nil {
			return nil, err
		}
		out = append(out, books...)
		if len(books) < page || offset+page >= total {
			return out, nil
		}
	}
}
