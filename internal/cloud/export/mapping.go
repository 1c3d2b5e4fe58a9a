package export

import (
	"strings"
	"time"

	"biblomnemon/internal/category"
	"biblomnemon/internal/library"
)

const (
	BooksTab      = "books"
	CategoriesTab = "categories"
	RelationsTab  = "book_category_relations"
)

var (
	BookHeaders = []string{
		"id", "source", "title", "description", "authors", "isbn", "language",
		"covers", "publish_year", "publisher", "page_count", "created", "updated",
	}
	CategoryHeaders = []string{"id", "title", "created", "updated"}
	RelationHeaders = []string{"book_id", "category_id"}
)

const listSeparator = "; "

func BookRow(b library.Book) []interface{} {
	return []interface{}{
		b.ID,
		string(b.Source),
		b.Title,
		b.Description,
		strings.Join(b.AuthorNames(), listSeparator),
		b.ISBN,
		b.Language,
		strings.Join(b.CoverURLs, listSeparator),
		intOrBlank(b.PublishYear),
		b.Publisher,
		intOrBlank(b.PageCount),
		millis(b.CreatedAt),
		millis(b.UpdatedAt),
	}
}

func CategoryRow(c category.Category) []interface{} {
	return []interface{}{c.ID, c.Title, millis(c.CreatedAt), millis(c.UpdatedAt)}
}

func RelationRow(r category.Relation) []interface{} {
	return []interface{}{r.BookID, r.CategoryID}
}

func intOrBlank(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func millis(t time.Time) interface{} {
	if t.IsZero() {
		return ""
	}
	return t.UnixMilli()
}

func rows[T any](items []T, row func(T) []interface{}) [][]interface{} {
	out := make([][]interface{}, 0, len(items))
	for _, it := range items {
		out = append(out, row(it))
	}
	return out
}
