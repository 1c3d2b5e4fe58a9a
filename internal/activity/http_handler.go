package activity

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"biblomnemon/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type activityReq struct {
	BookID      *string    `json:"book_id" validate:"omitempty,max=200"`
	Title       string     `json:"title" validate:"max=300"`
	Description string     `json:"description" validate:"max=5000"`
	Started     time.Time  `json:"started" validate:"required"`
	Ended       *time.Time `json:"ended" validate:"omitempty,gtefield=Started"`
	PagesRead   *int       `json:"pages_read" validate:"omitempty,gte=0"`
}

func (r activityReq) activity() ReadingActivity {
	return ReadingActivity{
		BookID:      r.BookID,
		Title:       r.Title,
		Description: r.Description,
		Started:     r.Started,
		Ended:       r.Ended,
		PagesRead:   r.PagesRead,
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Reading activity not found", nil)
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Linked book does not exist",
			[]httpx.ErrorDetail{{Field: "book_id", Message: "book_id must reference an existing book"}})
	case errors.Is(err, ErrInvalid):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	default:
		httpx.InternalError(w, r)
	}
}

func activityID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// List handles GET /v1/activities
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Pagination(r, DefaultLimit, 500)
	items, total, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []ReadingActivity{}
	}
	httpx.JSONSuccess(w, r, items, httpx.PageMeta(limit, offset, total))
}

// Get handles GET /v1/activities/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid activity id", nil)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, a, nil)
}

// Create handles POST /v1/activities
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req activityReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}
	a, err := h.service.Create(r.Context(), req.activity())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONCreated(w, r, a)
}

// Update handles PUT /v1/activities/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid activity id", nil)
		return
	}
	var req activityReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}
	a := req.activity()
	a.ID = id
	a, err := h.service.Update(r.Context(), a)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, a, nil)
}

// Delete handles DELETE /v1/activities/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := activityID(r)
	if !ok {
		httpx.JSONError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid activity id", nil)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}
