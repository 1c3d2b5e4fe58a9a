package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const DefaultLimit = 100

// Service provides category business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new category service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Category, int, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByBook(ctx context.Context, bookID string, limit, offset int) ([]Category, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.repo.ListByBookID(ctx, bookID, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, title string) (Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Category{}, ErrInvalidTitle
	}
	now := s.now().UTC()
	c := Category{Title: title, CreatedAt: now, UpdatedAt: now}
	if err := s.repo.Insert(ctx, &c); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *Service) Rename(ctx context.Context, id int64, title string) (Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Category{}, ErrInvalidTitle
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Category{}, err
	}
	c.Title = title
	c.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &c); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Ensure returns the category titled title, creating it when missing.
// Titles match case-insensitively.
func (s *Service) Ensure(ctx context.Context, title string) (Category, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Category{}, ErrInvalidTitle
	}
	c, err := s.repo.FindByTitle(ctx, title)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Category{}, err
	}
	c, err = s.Create(ctx, title)
	if errors.Is(err, ErrDuplicate) {
		// lost a race with a concurrent insert
		return s.repo.FindByTitle(ctx, title)
	}
	return c, err
}

func (s *Service) Link(ctx context.Context, bookID string, categoryID int64) error {
	return s.repo.AddRelation(ctx, bookID, categoryID)
}

func (s *Service) Unlink(ctx context.Context, bookID string, categoryID int64) error {
	return s.repo.RemoveRelation(ctx, bookID, categoryID)
}

func (s *Service) ClearBook(ctx context.Context, bookID string) error {
	return s.repo.ClearBook(ctx, bookID)
}

func (s *Service) Relations(ctx context.Context) ([]Relation, error) {
	return s.repo.Relations(ctx)
}

func (s *Service) All(ctx context.Context) ([]Category, error) {
	const page = 500
	var out []Category
	for offset := 0; ; offset += page {
		items, total, err := s.repo.List(ctx, page, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) < page || offset+page >= total {
			return out, nil
		}
	}
}

// Restore upserts categories with their IDs, then relinks books. Relations
// follow a category that was merged into an existing one by title.
func (s *Service) Restore(ctx context.Context, cats []Category, rels []Relation) error {
	ids := make(map[int64]int64, len(cats))
	for _, c := range cats {
		id, err := s.repo.Restore(ctx, c)
		if err != nil {
			return fmt.Errorf("restore category %d: %w", c.ID, err)
		}
		ids[c.ID] = id
	}
	for _, rel := range rels {
		categoryID := rel.CategoryID
		if id, ok := ids[categoryID]; ok {
			categoryID = id
		}
		if err := s.repo.AddRelation(ctx, rel.BookID, categoryID); err != nil {
			return fmt.Errorf("restore relation %s/%d: %w", rel.BookID, rel.CategoryID, err)
		}
	}
	return nil
}
