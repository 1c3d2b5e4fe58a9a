package library

import (
	"context"
	"errors"
	"net/http"

	"biblomnemon/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type bookReq struct {
	ID          string   `json:"id" validate:"max=200"`
	Source      string   `json:"source" validate:"omitempty,oneof=MANUAL GOOGLE OPEN_LIBRARY"`
	Title       string   `json:"title" validate:"required,max=500"`
	Description string   `json:"description" validate:"max=20000"`
	Authors     []Author `json:"authors" validate:"dive"`
	ISBN        string   `json:"isbn" validate:"omitempty,isbn"`
	Language    string   `json:"language" validate:"max=35"`
	CoverURLs   []string `json:"cover_urls" validate:"dive,url"`
	PublishYear *int     `json:"publish_year" validate:"omitempty,gte=0,lte=9999"`
	Publisher   string   `json:"publisher" validate:"max=300"`
	PageCount   *int     `json:"page_count" validate:"omitempty,gte=0"`
}

func (r bookReq) book() Book {
	return Book{
		ID:          r.ID,
		Source:      Source(r.Source),
		Title:       r.Title,
		Description: r.Description,
		Authors:     r.Authors,
		ISBN:        r.ISBN,
		Language:    r.Language,
		CoverURLs:   r.CoverURLs,
		PublishYear: r.PublishYear,
		Publisher:   r.Publisher,
		PageCount:   r.PageCount,
	}
}

type importReq struct {
	ISBN     string `json:"isbn" validate:"required_without=RemoteID,omitempty,isbn"`
	RemoteID string `json:"remote_id" validate:"required_without=ISBN,max=300"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	case errors.Is(err, ErrRemoteNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidISBN),
		errors.Is(err, ErrInvalidRemoteID), errors.Is(err, ErrUnknownSource):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrSourceUnavailable):
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		httpx.JSONError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", nil)
	default:
		httpx.InternalError(w, r)
	}
}

// List handles GET /v1/books
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, offset := httpx.Pagination(r, DefaultLimit, 100)

	params := Query{Q: query.Get("q"), Limit: limit, Offset: offset}
	if src := query.Get("source"); src != "" {
		s, err := ParseSource(src)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		params.Source = s
	}

	books, total, err := h.service.List(r.Context(), params)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if books == nil {
		books = []Book{}
	}
	httpx.JSONSuccess(w, r, books, httpx.PageMeta(limit, offset, total))
}

// Get handles GET /v1/books/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// GetByISBN handles GET /v1/books/isbn/{isbn}
func (h *HTTPHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetByISBN(r.Context(), r.PathValue("isbn"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Create handles POST /v1/books
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}
	b, err := h.service.Create(r.Context(), req.book())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, b)
}

// Update handles PUT /v1/books/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req bookReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}
	b := req.book()
	b.ID = r.PathValue("id")
	b, err := h.service.Update(r.Context(), b)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, b, nil)
}

// Delete handles DELETE /v1/books/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

// Import handles POST /v1/books/import
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}
	b, created, err := h.service.Import(r.Context(), ImportRequest{ISBN: req.ISBN, RemoteID: req.RemoteID})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !created {
		httpx.JSONSuccess(w, r, b, map[string]any{"created": false})
		return
	}
	httpx.JSONCreated(w, r, b)
}
