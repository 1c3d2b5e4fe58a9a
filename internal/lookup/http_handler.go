package lookup

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"biblomnemon/internal/httpx"
	"biblomnemon/internal/library"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrUnknownSource):
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrSourceUnavailable):
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		httpx.JSONError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Remote lookup timed out", nil)
	default:
		httpx.JSONError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "Remote lookup failed", nil)
	}
}

// Search handles GET /v1/lookup/search?q=
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed",
			[]httpx.ErrorDetail{{Field: "q", Message: "q is required"}})
		return
	}
	limit, offset := httpx.Pagination(r, 20, 40)

	books, err := h.service.Search(r.Context(), q, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, books, map[string]any{"limit": limit, "offset": offset, "sources": h.service.Sources()})
}

// GetByISBN handles GET /v1/lookup/isbn/{isbn}
func (h *HTTPHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("isbn")
	if errs := httpx.ValidateStruct(struct {
		ISBN string `json:"isbn" validate:"required,isbn"`
	}{code}); len(errs) > 0 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", errs)
		return
	}

	b, err := h.service.GetByISBN(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, withRemoteID(b), nil)
}

// GetByID handles GET /v1/lookup/books/{id} where id is SOURCE:remoteID.
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, withRemoteID(b), nil)
}

type remoteBook struct {
	library.Book
	RemoteID string `json:"remote_id"`
}

func withRemoteID(b library.Book) remoteBook {
	return remoteBook{Book: b, RemoteID: b.RemoteID()}
}
