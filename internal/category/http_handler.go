package category

import (
	"errors"
	"net/http"
	"strconv"

	"biblomnemon/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type titleReq struct {
	Title string `json:"title" validate:"required,max=200"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Category or book not found", nil)
	case errors.Is(err, ErrDuplicate):
		httpx.JSONError(w, r, http.StatusConflict, "CONFLICT", "Category already exists", nil)
	case errors.Is(err, ErrInvalidTitle):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		httpx.InternalError(w, r)
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

// List handles GET /v1/categories
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r, DefaultLimit, 500)
	items, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []Category{}
	}
	httpx.JSONSuccess(w, r, items, httpx.PageMeta(limit, offset, total))
}

// Create handles POST /v1/categories
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req titleReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}
	c, err := h.service.Create(r.Context(), req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, c)
}

// Update handles PUT /v1/categories/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid category id", nil)
		return
	}
	var req titleReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}
	c, err := h.service.Rename(r.Context(), id, req.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, c, nil)
}

// Delete handles DELETE /v1/categories/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid category id", nil)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

// ListByBook handles GET /v1/books/{id}/categories
func (h *HTTPHandler) ListByBook(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r, DefaultLimit, 500)
	items, err := h.service.ListByBook(r.Context(), r.PathValue("id"), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []Category{}
	}
	httpx.JSONSuccess(w, r, items, nil)
}

// Link handles PUT /v1/books/{id}/categories/{categoryID}
func (h *HTTPHandler) Link(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryID")
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid category id", nil)
		return
	}
	if err := h.service.Link(r.Context(), r.PathValue("id"), categoryID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

// Unlink handles DELETE /v1/books/{id}/categories/{categoryID}
func (h *HTTPHandler) Unlink(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(r, "categoryID")
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid category id", nil)
		return
	}
	if err := h.service.Unlink(r.Context(), r.PathValue("id"), categoryID); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}
