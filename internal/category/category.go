package category

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a category, or the book of a relation, does not exist.
	ErrNotFound = errors.New("category not found")
	// ErrDuplicate is returned when a category with the same title exists.
	ErrDuplicate = errors.New("category already exists")
	// ErrInvalidTitle is returned for blank titles.
	ErrInvalidTitle = errors.New("category title must not be blank")
)

// Category is a user-defined shelf a book can belong to. Remote lookups
// produce categories with a zero ID that are resolved by title on import.
type Category struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Relation links a book to a category.
type Relation struct {
	BookID     string `json:"book_id"`
	CategoryID int64  `json:"category_id"`
}
