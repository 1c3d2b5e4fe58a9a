package export

import (
	"context"
	"errors"
	"net/http"

	"biblomnemon/internal/cloud/auth"
	"biblomnemon/internal/httpx"
)

type HTTPHandler struct {
	targets map[string]Storage
}

// NewHTTPHandler serves the given targets by name. Nil storages are
// treated as not configured.
func NewHTTPHandler(targets map[string]Storage) *HTTPHandler {
	t := make(map[string]Storage, len(targets))
	for name, s := range targets {
		if s != nil {
			t[name] = s
		}
	}
	return &HTTPHandler{targets: t}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrNotSignedIn):
		httpx.JSONError(w, r, http.StatusUnauthorized, "NOT_SIGNED_IN", "Sign in to a cloud account first", nil)
	case errors.Is(err, auth.ErrNotAuthorized):
		httpx.JSONError(w, r, http.StatusForbidden, "NOT_AUTHORIZED", "Cloud access is not authorized", nil)
	case errors.Is(err, ErrUnsupported):
		httpx.JSONError(w, r, http.StatusNotImplemented, "NOT_IMPLEMENTED", err.Error(), nil)
	case errors.Is(err, ErrNoSnapshot):
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		httpx.JSONError(w, r, http.StatusGatewayTimeout, "TIMEOUT", "Request timed out", nil)
	default:
		httpx.InternalError(w, r)
	}
}

func (h *HTTPHandler) target(w http.ResponseWriter, r *http.Request) (Storage, bool) {
	name := r.PathValue("target")
	s, ok := h.targets[name]
	if !ok {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Unknown or unconfigured target: "+name, nil)
	}
	return s, ok
}

// Export handles POST /v1/cloud/export/{target}
func (h *HTTPHandler) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.target(w, r)
	if !ok {
		return
	}
	rep, err := s.Upload(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, rep, nil)
}

// Import handles POST /v1/cloud/import/{target}
func (h *HTTPHandler) Import(w http.ResponseWriter, r *http.Request) {
	s, ok := h.target(w, r)
	if !ok {
		return
	}
	rep, err := s.Download(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, rep, nil)
}
