// Package export copies the library to cloud storage: a Google spreadsheet
// for reading, or an S3 object that can be restored later.
package export

import (
	"context"
	"errors"

	"biblomnemon/internal/activity"
	"biblomnemon/internal/category"
	"biblomnemon/internal/library"
)

var (
	ErrUnsupported = errors.New("operation not supported by this storage")
	ErrNoSnapshot  = errors.New("no snapshot stored")
)

const (
	TargetSheets = "sheets"
	TargetS3     = "s3"
)

// Storage moves the whole library to or from one cloud target.
type Storage interface {
	Upload(ctx context.Context) (Report, error)
	Download(ctx context.Context) (Report, error)
}

// Report counts what was transferred.
type Report struct {
	Target     string `json:"target"`
	Location   string `json:"location,omitempty"`
	Books      int    `json:"books"`
	Categories int    `json:"categories"`
	Relations  int    `json:"relations"`
	Activities int    `json:"activities"`
}

// Dataset is the library as export sees it.
type Dataset interface {
	Books(ctx context.Context) ([]library.Book, error)
	Categories(ctx context.Context) ([]category.Category, error)
	Relations(ctx context.Context) ([]category.Relation, error)
	Activities(ctx context.Context) ([]activity.ReadingActivity, error)
	Restore(ctx context.Context, s Snapshot) error
}

// LibraryDataset reads and restores through the domain services.
type LibraryDataset struct {
	books      *library.Service
	categories *category.Service
	activities *activity.Service
}

func NewLibraryDataset(books *library.Service, categories *category.Service, activities *activity.Service) *LibraryDataset {
	return &LibraryDataset{books: books, categories: categories, activities: activities}
}

func (d *LibraryDataset) Books(ctx context.Context) ([]library.Book, error) {
	return d.books.All(ctx)
}

func (d *LibraryDataset) Categories(ctx context.Context) ([]category.Category, error) {
	return d.categories.All(ctx)
}

func (d *LibraryDataset) Relations(ctx context.Context) ([]category.Relation, error) {
	return d.categories.Relations(ctx)
}

func (d *LibraryDataset) Activities(ctx context.Context) ([]activity.ReadingActivity, error) {
	return d.activities.All(ctx)
}

// Restore writes books first so relations and activities can reference them.
func (d *LibraryDataset) Restore(ctx context.Context, s Snapshot) error {
	if err := d.books.Restore(ctx, s.Books); err != nil {
		return err
	}
	if err := d.categories.Restore(ctx, s.Categories, s.Relations); err != nil {
		return err
	}
	return d.activities.Restore(ctx, s.Activities)
}
