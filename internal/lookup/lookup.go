// Package lookup finds books in remote catalogs, trying each configured
// source in order.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"
)

var (
	ErrNotFound          = library.ErrRemoteNotFound
	ErrInvalidID         = library.ErrInvalidRemoteID
	ErrUnknownSource     = library.ErrUnknownSource
	ErrSourceUnavailable = library.ErrSourceUnavailable
)

// Source is one remote catalog. GetByID and GetByISBN return a nil book when
// the catalog has no match.
type Source interface {
	Name() library.Source
	Search(ctx context.Context, query string, limit, offset int) ([]library.Book, error)
	GetByID(ctx context.Context, id string) (*library.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*library.Book, error)
}

type Service struct {
	sources []Source
	log     logging.Logger
}

func NewService(log logging.Logger, sources ...Source) *Service {
	return &Service{sources: sources, log: log.With("component", "lookup")}
}

// Order picks sources by name, in the given order. An empty list keeps all
// sources in their original order.
func Order(all []Source, names []string) ([]Source, error) {
	if len(names) == 0 {
		return all, nil
	}
	out := make([]Source, 0, len(names))
	for _, name := range names {
		src, err := library.ParseSource(name)
		if err != nil {
			return nil, err
		}
		found := false
		for _, s := range all {
			if s.Name() == src {
				out = append(out, s)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrSourceUnavailable, src)
		}
	}
	return out, nil
}

func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Sources reports the configured source names in lookup order.
func (s *Service) Sources() []library.Source {
	out := make([]library.Source, len(s.sources))
	for i, src := range s.sources {
		out[i] = src.Name()
	}
	return out
}

// Fetch exists for symmetry with the local library; remote catalogs have no
// browse listing.
func (s *Service) Fetch(ctx context.Context, limit, offset int) ([]library.Book, error) {
	return []library.Book{}, nil
}

// Search returns the first non-empty result. Failing sources are skipped;
// cancellation is not.
func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]library.Book, error) {
	for _, src := range s.sources {
		books, err := src.Search(ctx, query, limit, offset)
		if err != nil {
			if canceled(err) {
				return nil, err
			}
			s.log.Warn(ctx, "source search failed", "source", src.Name(), "error", err)
			continue
		}
		if len(books) > 0 {
			return books, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []library.Book{}, nil
}

// GetByISBN returns the first match across sources.
func (s *Service) GetByISBN(ctx context.Context, isbn string) (library.Book, error) {
	for _, src := range s.sources {
		b, err := src.GetByISBN(ctx, isbn)
		if err != nil {
			if canceled(err) {
				return library.Book{}, err
			}
			s.log.Warn(ctx, "source isbn lookup failed", "source", src.Name(), "isbn", isbn, "error", err)
			continue
		}
		if b != nil {
			return *b, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return library.Book{}, err
	}
	return library.Book{}, fmt.Errorf("%w: book not found for ISBN: %s", ErrNotFound, isbn)
}

// GetByID resolves a "SOURCE:id" remote id against the matching source.
func (s *Service) GetByID(ctx context.Context, id string) (library.Book, error) {
	prefix, rawID, ok := strings.Cut(id, ":")
	if !ok || rawID == "" {
		return library.Book{}, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	var name library.Source
	switch src := library.Source(prefix); src {
	case library.SourceGoogle, library.SourceOpenLibrary:
		name = src
	default:
		return library.Book{}, fmt.Errorf("%w: %s", ErrUnknownSource, prefix)
	}

	for _, src := range s.sources {
		if src.Name() != name {
			continue
		}
		b, err := src.GetByID(ctx, rawID)
		if err != nil {
			return library.Book{}, err
		}
		if b == nil {
			return library.Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return *b, nil
	}
	return library.Book{}, fmt.Errorf("%w: %s", ErrSourceUnavailable, name)
}
