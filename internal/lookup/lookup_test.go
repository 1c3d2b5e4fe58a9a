package lookup

import (
	"context"
	"errors"
	"testing"

	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSource struct {
	mock.Mock
	name library.Source
}

func newMockSource(name library.Source) *MockSource {
	return &MockSource{name: name}
}

func (m *MockSource) Name() library.Source { return m.name }

func (m *MockSource) Search(ctx context.Context, query string, limit, offset int) ([]library.Book, error) {
	args := m.Called(ctx, query, limit, offset)
	books, _ := args.Get(0).([]library.Book)
	return books, args.Error(1)
}

func (m *MockSource) GetByID(ctx context.Context, id string) (*library.Book, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*library.Book)
	return b, args.Error(1)
}

func (m *MockSource) GetByISBN(ctx context.Context, isbn string) (*library.Book, error) {
	args := m.Called(ctx, isbn)
	b, _ := args.Get(0).(*library.Book)
	return b, args.Error(1)
}

func sources() (*MockSource, *MockSource, *Service) {
	g := newMockSource(library.SourceGoogle)
	ol := newMockSource(library.SourceOpenLibrary)
	return g, ol, NewService(logging.Nop(), g, ol)
}

func TestService_SearchPrefersFirstNonEmpty(t *testing.T) {
	g, ol, s := sources()
	ctx := context.Background()

	g.On("Search", ctx, "dune", 10, 0).Return([]library.Book{{ID: "g1", Source: library.SourceGoogle}}, nil)

	books, err := s.Search(ctx, "dune", 10, 0)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "g1", books[0].ID)
	ol.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SearchFallsThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("empty first source", func(t *testing.T) {
		g, ol, s := sources()
		g.On("Search", ctx, "dune", 10, 0).Return([]library.Book{}, nil)
		ol.On("Search", ctx, "dune", 10, 0).Return([]library.Book{{ID: "OL1W"}}, nil)

		books, err := s.Search(ctx, "dune", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, "OL1W", books[0].ID)
	})

	t.Run("failed first source", func(t *testing.T) {
		g, ol, s := sources()
		g.On("Search", ctx, "dune", 10, 0).Return(nil, errors.New("quota exceeded"))
		ol.On("Search", ctx, "dune", 10, 0).Return([]library.Book{{ID: "OL1W"}}, nil)

		books, err := s.Search(ctx, "dune", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, "OL1W", books[0].ID)
	})

	t.Run("all empty or failed", func(t *testing.T) {
		g, ol, s := sources()
		g.On("Search", ctx, "x", 10, 0).Return(nil, errors.New("boom"))
		ol.On("Search", ctx, "x", 10, 0).Return(nil, nil)

		books, err := s.Search(ctx, "x", 10, 0)
		require.NoError(t, err)
		assert.NotNil(t, books)
		assert.Empty(t, books)
	})
}

func TestService_SearchStopsOnCancellation(t *testing.T) {
	g, ol, s := sources()
	ctx := context.Background()

	g.On("Search", ctx, "dune", 10, 0).Return(nil, context.Canceled)

	_, err := s.Search(ctx, "dune", 10, 0)
	assert.ErrorIs(t, err, context.Canceled)
	ol.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetByISBN(t *testing.T) {
	ctx := context.Background()

	t.Run("second source matches", func(t *testing.T) {
		g, ol, s := sources()
		g.On("GetByISBN", ctx, "9780441013593").Return(nil, nil)
		ol.On("GetByISBN", ctx, "9780441013593").Return(&library.Book{ID: "OL1W"}, nil)

		b, err := s.GetByISBN(ctx, "9780441013593")
		require.NoError(t, err)
		assert.Equal(t, "OL1W", b.ID)
	})

	t.Run("no match", func(t *testing.T) {
		g, ol, s := sources()
		g.On("GetByISBN", ctx, "9780441013593").Return(nil, errors.New("boom"))
		ol.On("GetByISBN", ctx, "9780441013593").Return(nil, nil)

		_, err := s.GetByISBN(ctx, "9780441013593")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "book not found for ISBN: 9780441013593")
	})

	t.Run("deadline", func(t *testing.T) {
		g, ol, s := sources()
		g.On("GetByISBN", ctx, "9780441013593").Return(nil, context.DeadlineExceeded)

		_, err := s.GetByISBN(ctx, "9780441013593")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		ol.AssertNotCalled(t, "GetByISBN", mock.Anything, mock.Anything)
	})
}

func TestService_GetByID(t *testing.T) {
	ctx := context.Background()
	g, ol, s := sources()

	g.On("GetByID", ctx, "abc").Return(&library.Book{ID: "abc", Source: library.SourceGoogle}, nil)
	ol.On("GetByID", ctx, "OL1W").Return(nil, nil)

	b, err := s.GetByID(ctx, "GOOGLE:abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", b.ID)

	_, err = s.GetByID(ctx, "OPEN_LIBRARY:OL1W")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = s.GetByID(ctx, "KINDLE:abc")
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = s.GetByID(ctx, "MANUAL:abc")
	assert.ErrorIs(t, err, ErrUnknownSource)

	googleOnly := NewService(logging.Nop(), g)
	_, err = googleOnly.GetByID(ctx, "OPEN_LIBRARY:OL1W")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestService_Fetch(t *testing.T) {
	_, _, s := sources()
	books, err := s.Fetch(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestOrder(t *testing.T) {
	g, ol, _ := sources()
	all := []Source{g, ol}

	got, err := Order(all, []string{"open_library", "GOOGLE"})
	require.NoError(t, err)
	assert.Equal(t, []Source{ol, g}, got)

	got, err = Order(all, nil)
	require.NoError(t, err)
	assert.Equal(t, all, got)

	_, err = Order([]Source{g}, []string{"OPEN_LIBRARY"})
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	_, err = Order(all, []string{"AMAZON"})
	assert.ErrorIs(t, err, ErrUnknownSource)
}
