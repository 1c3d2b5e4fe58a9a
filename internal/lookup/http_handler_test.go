package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"
	"biblomnemon/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHTTPHandler_Search(t *testing.T) {
	g, ol, s := sources()
	h := NewHTTPHandler(s)

	g.On("Search", mock.Anything, "dune", 20, 0).Return([]library.Book{}, nil)
	ol.On("Search", mock.Anything, "dune", 20, 0).Return([]library.Book{{ID: "OL1W", Title: "Dune"}}, nil)

	w := httptest.NewRecorder()
	h.Search(w, httptest.NewRequest(http.MethodGet, "/v1/lookup/search?q=dune", nil))

	res := testutil.RecordHTTPResponse(w)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Len(t, res.Data(), 1)

	w = httptest.NewRecorder()
	h.Search(w, httptest.NewRequest(http.MethodGet, "/v1/lookup/search", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPHandler_GetByISBN(t *testing.T) {
	g, ol, s := sources()
	h := NewHTTPHandler(s)

	g.On("GetByISBN", mock.Anything, "9780441013593").Return(&library.Book{ID: "abc", Source: library.SourceGoogle}, nil)
	ol.On("GetByISBN", mock.Anything, "0306406152").Return(nil, nil)
	g.On("GetByISBN", mock.Anything, "0306406152").Return(nil, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/lookup/isbn/9780441013593", nil)
	r.SetPathValue("isbn", "9780441013593")
	h.GetByISBN(w, r)
	res := testutil.RecordHTTPResponse(w)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "GOOGLE:abc", res.Data().(map[string]interface{})["remote_id"])

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/v1/lookup/isbn/0306406152", nil)
	r.SetPathValue("isbn", "0306406152")
	h.GetByISBN(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/v1/lookup/isbn/12", nil)
	r.SetPathValue("isbn", "12")
	h.GetByISBN(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPHandler_GetByID(t *testing.T) {
	g, _, _ := sources()
	h := NewHTTPHandler(NewService(logging.Nop(), g))

	g.On("GetByID", mock.Anything, "slow").Return(nil, context.DeadlineExceeded)

	tests := []struct {
		id   string
		want int
	}{
		{"nocolon", http.StatusBadRequest},
		{"KINDLE:1", http.StatusBadRequest},
		{"OPEN_LIBRARY:OL1W", http.StatusServiceUnavailable},
		{"GOOGLE:slow", http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/lookup/books/"+tt.id, nil)
			r.SetPathValue("id", tt.id)
			h.GetByID(w, r)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
