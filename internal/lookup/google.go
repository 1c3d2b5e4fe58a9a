package lookup

import (
	"context"
	"errors"
	"strings"

	"biblomnemon/internal/category"
	"biblomnemon/internal/library"
	"biblomnemon/internal/platform/googlebooks"
)

// GoogleClient is the part of the Google Books client the source uses.
type GoogleClient interface {
	Search(ctx context.Context, q string, limit, offset int) (*googlebooks.VolumesResponse, error)
	SearchByISBN(ctx context.Context, isbn string) (*googlebooks.VolumesResponse, error)
	GetVolume(ctx context.Context, id string) (*googlebooks.Volume, error)
}

type GoogleSource struct {
	client GoogleClient
}

func NewGoogleSource(client GoogleClient) *GoogleSource {
	return &GoogleSource{client: client}
}

func (s *GoogleSource) Name() library.Source { return library.SourceGoogle }

func (s *GoogleSource) Search(ctx context.Context, query string, limit, offset int) ([]library.Book, error) {
	res, err := s.client.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return volumesToBooks(res), nil
}

func (s *GoogleSource) GetByID(ctx context.Context, id string) (*library.Book, error) {
	v, err := s.client.GetVolume(ctx, id)
	if errors.Is(err, googlebooks.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return volumeToBook(*v), nil
}

func (s *GoogleSource) GetByISBN(ctx context.Context, isbn string) (*library.Book, error) {
	res, err := s.client.SearchByISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}
	books := volumesToBooks(res)
	if len(books) == 0 {
		return nil, nil
	}
	return &books[0], nil
}

func volumesToBooks(res *googlebooks.VolumesResponse) []library.Book {
	if res == nil {
		return nil
	}
	out := make([]library.Book, 0, len(res.Items))
	for _, v := range res.Items {
		if b := volumeToBook(v); b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// volumeToBook returns nil for volumes without volumeInfo.
func volumeToBook(v googlebooks.Volume) *library.Book {
	info := v.VolumeInfo
	if info == nil {
		return nil
	}

	b := &library.Book{
		ID:          v.ID,
		Source:      library.SourceGoogle,
		Title:       joinTitle(info.Title, info.Subtitle),
		Description: info.Description,
		Language:    info.Language,
		PublishYear: publishYear(info.PublishedDate),
		Publisher:   info.Publisher,
		PageCount:   positive(info.PageCount),
	}

	for _, name := range info.Authors {
		b.Authors = append(b.Authors, library.Author{Name: name})
	}

	for _, id := range info.IndustryIdentifiers {
		if strings.HasPrefix(id.Type, "ISBN") {
			b.ISBN = id.Identifier
		}
	}

	if l := info.ImageLinks; l != nil {
		if l.Small != "" {
			b.CoverURLs = append(b.CoverURLs, forceHTTPS(l.Small))
		} else if l.Thumbnail != "" {
			b.CoverURLs = append(b.CoverURLs, forceHTTPS(l.Thumbnail))
		}
		if l.Medium != "" {
			b.CoverURLs = append(b.CoverURLs, forceHTTPS(l.Medium))
		}
		if l.Large != "" {
			b.CoverURLs = append(b.CoverURLs, forceHTTPS(l.Large))
		}
	}

	for _, c := range info.Categories {
		if c = strings.TrimSpace(c); c != "" {
			b.Categories = append(b.Categories, category.Category{Title: c})
		}
	}
	return b
}
