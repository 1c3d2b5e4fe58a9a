package lookup

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"biblomnemon/internal/isbn"
	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"
	"biblomnemon/internal/platform/openlibrary"
)

// OpenLibraryClient is the part of the Open Library client the source uses.
type OpenLibraryClient interface {
	Search(ctx context.Context, query string, limit, offset int) (*openlibrary.SearchResponse, error)
	SearchByISBN(ctx context.Context, isbn string) (*openlibrary.SearchResponse, error)
	GetWork(ctx context.Context, id string) (*openlibrary.Work, error)
	GetAuthor(ctx context.Context, key string) (*openlibrary.AuthorDetails, error)
}

type OpenLibrarySource struct {
	client OpenLibraryClient
	log    logging.Logger
}

func NewOpenLibrarySource(client OpenLibraryClient, log logging.Logger) *OpenLibrarySource {
	return &OpenLibrarySource{client: client, log: log}
}

func (s *OpenLibrarySource) Name() library.Source { return library.SourceOpenLibrary }

func (s *OpenLibrarySource) Search(ctx context.Context, query string, limit, offset int) ([]library.Book, error) {
	res, err := s.client.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]library.Book, 0, len(res.Docs))
	for _, d := range res.Docs {
		out = append(out, docToBook(d, ""))
	}
	return out, nil
}

func (s *OpenLibrarySource) GetByISBN(ctx context.Context, code string) (*library.Book, error) {
	res, err := s.client.SearchByISBN(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(res.Docs) == 0 {
		return nil, nil
	}
	b := docToBook(res.Docs[0], isbn.Normalize(code))
	return &b, nil
}

// GetByID loads a work and resolves its authors. Author lookups that fail
// are skipped.
func (s *OpenLibrarySource) GetByID(ctx context.Context, id string) (*library.Book, error) {
	w, err := s.client.GetWork(ctx, id)
	if errors.Is(err, openlibrary.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	b := &library.Book{
		ID:          workID(w.Key, id),
		Source:      library.SourceOpenLibrary,
		Title:       joinTitle(w.Title, w.Subtitle),
		Description: string(w.Description),
		PublishYear: trailingYear(w.FirstPublishDate),
	}
	for _, c := range w.Covers {
		if c > 0 {
			b.CoverURLs = coverURLs("id", strconv.Itoa(c))
			break
		}
	}

	for _, ref := range w.Authors {
		a, err := s.client.GetAuthor(ctx, ref.Author.Key)
		if err != nil {
			if canceled(err) {
				return nil, err
			}
			s.log.Warn(ctx, "author lookup failed", "author", ref.Author.Key, "error", err)
			continue
		}
		author := library.Author{
			Name:      a.Name,
			BirthDate: a.BirthDate,
			DeathDate: a.DeathDate,
			Bio:       string(a.Bio),
		}
		if author.Name == "" {
			author.Name = a.PersonalName
		}
		for _, p := range a.Photos {
			if p > 0 {
				author.ImageURL = openlibrary.AuthorPhotoURL(p)
				break
			}
		}
		b.Authors = append(b.Authors, author)
	}
	return b, nil
}

func workID(key, fallback string) string {
	if key == "" {
		key = fallback
	}
	return strings.TrimPrefix(key, "/works/")
}

func firstValidISBN(codes []string) string {
	for _, c := range codes {
		if isbn.Valid(c) {
			return isbn.Normalize(c)
		}
	}
	return ""
}

func coverURLs(kind, value string) []string {
	return []string{
		openlibrary.CoverURL(kind, value, "S"),
		openlibrary.CoverURL(kind, value, "M"),
		openlibrary.CoverURL(kind, value, "L"),
	}
}

// docToBook maps a search document. wantISBN, when set, is reported as the
// book's ISBN instead of the first valid edition ISBN.
func docToBook(d openlibrary.Doc, wantISBN string) library.Book {
	b := library.Book{
		ID:          workID(d.Key, ""),
		Source:      library.SourceOpenLibrary,
		Title:       d.Title,
		ISBN:        wantISBN,
		Language:    first(d.Language),
		Publisher:   first(d.Publisher),
		PublishYear: positive(d.FirstPublishYear),
		PageCount:   positive(d.NumberOfPagesMedian),
	}
	if b.ISBN == "" {
		b.ISBN = firstValidISBN(d.ISBN)
	}
	for _, name := range d.AuthorNames {
		b.Authors = append(b.Authors, library.Author{Name: name})
	}
	switch {
	case d.CoverID > 0:
		b.CoverURLs = coverURLs("id", strconv.Itoa(d.CoverID))
	case b.ISBN != "":
		b.CoverURLs = coverURLs("isbn", b.ISBN)
	}
	return b
}
