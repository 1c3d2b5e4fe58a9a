package activity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const DefaultLimit = 100

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns activities, most recently started first, with their books.
func (s *Service) List(ctx context.Context, limit, offset int) ([]ReadingActivity, int, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (ReadingActivity, error) {
	return s.repo.GetByID(ctx, id)
}

func clean(a *ReadingActivity) {
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
	if a.BookID != nil && strings.TrimSpace(*a.BookID) == "" {
		a.BookID = nil
	}
	a.Book = nil
}

func (s *Service) Create(ctx context.Context, a ReadingActivity) (ReadingActivity, error) {
	clean(&a)
	if err := a.Validate(); err != nil {
		return ReadingActivity{}, err
	}
	now := s.now().UTC()
	a.ID = 0
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := s.repo.Insert(ctx, &a); err != nil {
		return ReadingActivity{}, err
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, a ReadingActivity) (ReadingActivity, error) {
	clean(&a)
	if err := a.Validate(); err != nil {
		return ReadingActivity{}, err
	}
	a.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, &a); err != nil {
		return ReadingActivity{}, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// All pages through every stored activity.
func (s *Service) All(ctx context.Context) ([]ReadingActivity, error) {
	const page = 500
	var out []ReadingActivity
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

func (s *Service) Restore(ctx context.Context, items []ReadingActivity) error {
	for _, a := range items {
		a.Book = nil
		if err := s.repo.Restore(ctx, a); err != nil {
			return fmt.Errorf("restore activity %d: %w", a.ID, err)
		}
	}
	return nil
}
