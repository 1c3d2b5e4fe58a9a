package category

import "context"

//go:generate mockgen -source=ports.go -destination=mock_repository.go -package=category

// Repository defines the contract for category and book relation storage.
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Category, int, error)
	ListByBookID(ctx context.Context, bookID string, limit, offset int) ([]Category, error)
	GetByID(ctx context.Context, id int64) (Category, error)
	FindByTitle(ctx context.Context, title string) (Category, error)
	Insert(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id int64) error
	// Restore upserts a category keeping its ID and returns the ID it was
	// stored under. A title already held by another category resolves to
	// that category's ID.
	Restore(ctx context.Context, c Category) (int64, error)

	AddRelation(ctx context.Context, bookID string, categoryID int64) error
	RemoveRelation(ctx context.Context, bookID string, categoryID int64) error
	ClearBook(ctx context.Context, bookID string) error
	Relations(ctx context.Context) ([]Relation, error)
}
