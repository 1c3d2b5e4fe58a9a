// Package library holds the books saved to the personal library.
package library

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"biblomnemon/internal/category"
)

var (
	// ErrNotFound is returned when a book is not in the library.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidID is returned when a non-manual book has no id.
	ErrInvalidID = errors.New("book id must not be blank")
	// ErrInvalidISBN is returned for ISBNs that fail the checksum.
	ErrInvalidISBN = errors.New("invalid isbn")
	// ErrConflict is returned when a book changed after it was read.
	ErrConflict = errors.New("book was modified concurrently")

	// ErrRemoteNotFound is returned when no remote source knows the book.
	ErrRemoteNotFound = errors.New("book not found in remote sources")
	// ErrInvalidRemoteID is returned for remote ids without a SOURCE: prefix.
	ErrInvalidRemoteID = errors.New("invalid remote book id")
	// ErrUnknownSource is returned for source names outside the Source enum.
	ErrUnknownSource = errors.New("unknown book source")
	// ErrSourceUnavailable is returned when a known source is not configured.
	ErrSourceUnavailable = errors.New("book source unavailable")
)

// Source is where a book record came from.
type Source string

const (
	SourceManual      Source = "MANUAL"
	SourceGoogle      Source = "GOOGLE"
	SourceOpenLibrary Source = "OPEN_LIBRARY"
)

// ParseSource accepts source names case-insensitively.
func ParseSource(s string) (Source, error) {
	switch src := Source(strings.ToUpper(strings.TrimSpace(s))); src {
	case SourceManual, SourceGoogle, SourceOpenLibrary:
		return src, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSource, s)
	}
}

type Author struct {
	Name      string `json:"name" validate:"required,max=300"`
	BirthDate string `json:"birth_date,omitempty"`
	DeathDate string `json:"death_date,omitempty"`
	Bio       string `json:"bio,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Book is a library entry. Books found through a remote lookup carry the
// remote id and source; their categories have a zero ID until imported.
type Book struct {
	ID          string              `json:"id"`
	Source      Source              `json:"source"`
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Authors     []Author            `json:"authors,omitempty"`
	ISBN        string              `json:"isbn,omitempty"`
	Language    string              `json:"language,omitempty"`
	CoverURLs   []string            `json:"cover_urls,omitempty"`
	PublishYear *int                `json:"publish_year,omitempty"`
	Publisher   string              `json:"publisher,omitempty"`
	PageCount   *int                `json:"page_count,omitempty"`
	Categories  []category.Category `json:"categories,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// RemoteID is the "SOURCE:id" form understood by remote lookups.
func (b Book) RemoteID() string {
	return string(b.Source) + ":" + b.ID
}

// AuthorNames returns the author names in order.
func (b Book) AuthorNames() []string {
	names := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		names = append(names, a.Name)
	}
	return names
}

// Query defines filters and pagination for listing books.
type Query struct {
	Q      string
	Source Source
	Limit  int
	Offset int
}
