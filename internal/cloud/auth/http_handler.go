package auth

import (
	"errors"
	"net/http"

	"biblomnemon/internal/httpx"
	"biblomnemon/internal/platform/crypto"
)

type HTTPHandler struct {
	manager *Manager
}

func NewHTTPHandler(manager *Manager) *HTTPHandler {
	return &HTTPHandler{manager: manager}
}

type signInReq struct {
	IDToken string `json:"id_token" validate:"required"`
}

type authorizeReq struct {
	Scopes []string `json:"scopes" validate:"required,min=1,dive,required"`
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidToken):
		httpx.JSONError(w, r, http.StatusUnauthorized, "INVALID_ID_TOKEN", "ID token could not be verified", nil)
	case errors.Is(err, crypto.ErrInvalidState):
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_STATE", "Authorization state is invalid or expired", nil)
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrNoScopes):
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, ErrNotAuthorized):
		httpx.JSONError(w, r, http.StatusUnauthorized, "NOT_AUTHORIZED", "Cloud access is not authorized", nil)
	default:
		httpx.InternalError(w, r)
	}
}

// Status handles GET /v1/cloud/user
func (h *HTTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	u, err := h.manager.User(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	authorized, err := h.manager.IsAuthorized(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]any{
		"signed_in":  u != nil,
		"authorized": authorized,
		"user":       u,
	}, nil)
}

// SignIn handles POST /v1/cloud/signin
func (h *HTTPHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}

	u, err := h.manager.SignIn(r.Context(), req.IDToken)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, u, nil)
}

// SignOut handles POST /v1/cloud/signout
func (h *HTTPHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.SignOut(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}

// Authorize handles POST /v1/cloud/authorize
func (h *HTTPHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadBody(w, r, err)
		return
	}
	if !httpx.Validate(w, r, req) {
		return
	}

	u, err := h.manager.AuthorizationURL(req.Scopes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"url": u}, nil)
}

// Callback handles GET /v1/cloud/callback
func (h *HTTPHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		httpx.JSONError(w, r, http.StatusBadRequest, "CONSENT_DENIED", e, nil)
		return
	}
	if err := h.manager.CompleteAuthorization(r.Context(), q.Get("code"), q.Get("state")); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, r, map[string]bool{"authorized": true}, nil)
}

// Revoke handles POST /v1/cloud/revoke
func (h *HTTPHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Revoke(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.JSONNoContent(w)
}
