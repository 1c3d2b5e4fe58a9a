package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"biblomnemon/internal/library"
	"biblomnemon/internal/platform/googlebooks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeToBook(t *testing.T) {
	v := googlebooks.Volume{
		ID: "zyTCAlFPjgYC",
		VolumeInfo: &googlebooks.VolumeInfo{
			Title:    "The Google Story",
			Subtitle: "Inside the Hottest Business",
			Authors:  []string{"David A. Vise", "Mark Malseed"},
			IndustryIdentifiers: []googlebooks.IndustryIdentifier{
				{Type: "ISBN_10", Identifier: "055380457X"},
				{Type: "OTHER", Identifier: "UOM:39015061001524"},
				{Type: "ISBN_13", Identifier: "9780553804577"},
				{Type: "OTHER", Identifier: "x"},
			},
			ImageLinks: &googlebooks.ImageLinks{
				Thumbnail: "http://books.google.com/thumb",
				Medium:    "http://books.google.com/medium",
				Large:     "https://books.google.com/large",
			},
			PublishedDate: "2005-11",
			PageCount:     207,
			Categories:    []string{"Business & Economics", " "},
		},
	}

	b := volumeToBook(v)
	require.NotNil(t, b)
	assert.Equal(t, library.SourceGoogle, b.Source)
	assert.Equal(t, "The Google Story: Inside the Hottest Business", b.Title)
	assert.Equal(t, "9780553804577", b.ISBN)
	assert.Equal(t, []string{
		"https://books.google.com/thumb",
		"https://books.google.com/medium",
		"https://books.google.com/large",
	}, b.CoverURLs)
	require.NotNil(t, b.PublishYear)
	assert.Equal(t, 2005, *b.PublishYear)
	assert.Equal(t, 207, *b.PageCount)
	assert.Equal(t, []string{"David A. Vise", "Mark Malseed"}, b.AuthorNames())
	require.Len(t, b.Categories, 1)
	assert.Equal(t, "Business & Economics", b.Categories[0].Title)
	assert.Equal(t, "GOOGLE:zyTCAlFPjgYC", b.RemoteID())
}

func TestVolumeToBook_Edges(t *testing.T) {
	assert.Nil(t, volumeToBook(googlebooks.Volume{ID: "x"}))

	b := volumeToBook(googlebooks.Volume{ID: "x", VolumeInfo: &googlebooks.VolumeInfo{
		Title:         "Solo",
		Subtitle:      "  ",
		PublishedDate: "sometime",
		ImageLinks:    &googlebooks.ImageLinks{Small: "http://s", Thumbnail: "http://t"},
	}})
	assert.Equal(t, "Solo", b.Title)
	assert.Nil(t, b.PublishYear)
	assert.Nil(t, b.PageCount)
	assert.Equal(t, []string{"https://s"}, b.CoverURLs)
}

func TestPublishYear(t *testing.T) {
	for in, want := range map[string]int{"2004-05-01": 2004, "1999-12": 1999, "1865": 1865} {
		got := publishYear(in)
		require.NotNil(t, got, in)
		assert.Equal(t, want, *got)
	}
	assert.Nil(t, publishYear(""))
	assert.Nil(t, publishYear("May 2004"))
}

func TestGoogleSource_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/volumes" && r.URL.Query().Get("q") == "isbn:0000000000":
			w.Write([]byte(`{"totalItems":0}`))
		case r.URL.Path == "/volumes":
			w.Write([]byte(`{"items":[{"id":"a","volumeInfo":{"title":"A"}},{"id":"b"}]}`))
		case r.URL.Path == "/volumes/a":
			w.Write([]byte(`{"id":"a","volumeInfo":{"title":"A"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewGoogleSource(googlebooks.NewClient("", 100, 0, googlebooks.WithBaseURL(srv.URL)))
	ctx := context.Background()

	books, err := src.Search(ctx, "a", 10, 0)
	require.NoError(t, err)
	assert.Len(t, books, 1)

	b, err := src.GetByISBN(ctx, "0000000000")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = src.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", b.Title)

	b, err = src.GetByID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, b)
}
