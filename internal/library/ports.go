package library

import (
	"context"
	"time"

	"biblomnemon/internal/category"
)

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=library

// Repository defines the contract for book data storage.
type Repository interface {
	List(ctx context.Context, q Query) ([]Book, int, error)
	GetByID(ctx context.Context, id string) (Book, error)
	GetByISBN(ctx context.Context, isbn string) (Book, error)
	// Upsert inserts the book or replaces the row with the same id.
	Upsert(ctx context.Context, b *Book) error
	Update(ctx context.Context, b *Book) error
	Delete(ctx context.Context, id string) error
	// ListStale returns books with an ISBN last updated before olderThan,
	// least recently updated first.
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]Book, error)
}

// Categories is the part of the category service books depend on.
type Categories interface {
	ListByBook(ctx context.Context, bookID string, limit, offset int) ([]category.Category, error)
	Ensure(ctx context.Context, title string) (category.Category, error)
	Link(ctx context.Context, bookID string, categoryID int64) error
}

// RemoteFinder resolves books the library does not hold yet.
type RemoteFinder interface {
	GetByISBN(ctx context.Context, isbn string) (Book, error)
	GetByID(ctx context.Context, remoteID string) (Book, error)
}
