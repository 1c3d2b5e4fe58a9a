package main

import (
	"context"
	"net/http"
	"time"

	"biblomnemon/internal/activity"
	"biblomnemon/internal/app"
	"biblomnemon/internal/category"
	"biblomnemon/internal/cloud/auth"
	"biblomnemon/internal/cloud/export"
	"biblomnemon/internal/config"
	"biblomnemon/internal/httpx"
	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"
	"biblomnemon/internal/lookup"
	"biblomnemon/internal/refresh"
)

type handlers struct {
	books      *library.HTTPHandler
	categories *category.HTTPHandler
	activities *activity.HTTPHandler
	lookup     *lookup.HTTPHandler
	cloud      *auth.HTTPHandler
	export     *export.HTTPHandler
	refresh    *refresh.HTTPHandler
	ping       func(ctx context.Context) error
}

func newHandlers(a *app.App) handlers {
	return handlers{
		books:      library.NewHTTPHandler(a.Books),
		categories: category.NewHTTPHandler(a.Categories),
		activities: activity.NewHTTPHandler(a.Activities),
		lookup:     lookup.NewHTTPHandler(a.Lookup),
		cloud:      auth.NewHTTPHandler(a.Cloud),
		export:     export.NewHTTPHandler(a.Storages),
		refresh:    refresh.NewHTTPHandler(a.Refresh, a.Config.Server.InternalSecret),
		ping:       a.Ping,
	}
}

// newRouter registers every route and wraps the mux in the middleware
// chain. /v1 requires a bearer token when an API secret is set; the OAuth
// callback stays open because the browser lands on it.
func newRouter(ctx context.Context, h handlers, cfg config.Server, log logging.Logger) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.ping(pingCtx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	v1 := http.NewServeMux()

	v1.HandleFunc("GET /v1/books", h.books.List)
	v1.HandleFunc("POST /v1/books", h.books.Create)
	v1.HandleFunc("POST /v1/books/import", h.books.Import)
	v1.HandleFunc("GET /v1/books/{id}/{sub}", h.bookSubresource)
	v1.HandleFunc("GET /v1/books/{id}", h.books.Get)
	v1.HandleFunc("PUT /v1/books/{id}", h.books.Update)
	v1.HandleFunc("DELETE /v1/books/{id}", h.books.Delete)

	v1.HandleFunc("GET /v1/categories", h.categories.List)
	v1.HandleFunc("POST /v1/categories", h.categories.Create)
	v1.HandleFunc("PUT /v1/categories/{id}", h.categories.Update)
	v1.HandleFunc("DELETE /v1/categories/{id}", h.categories.Delete)
	v1.HandleFunc("PUT /v1/books/{id}/categories/{categoryID}", h.categories.Link)
	v1.HandleFunc("DELETE /v1/books/{id}/categories/{categoryID}", h.categories.Unlink)

	v1.HandleFunc("GET /v1/activities", h.activities.List)
	v1.HandleFunc("POST /v1/activities", h.activities.Create)
	v1.HandleFunc("GET /v1/activities/{id}", h.activities.Get)
	v1.HandleFunc("PUT /v1/activities/{id}", h.activities.Update)
	v1.HandleFunc("DELETE /v1/activities/{id}", h.activities.Delete)

	v1.HandleFunc("GET /v1/lookup/search", h.lookup.Search)
	v1.HandleFunc("GET /v1/lookup/isbn/{isbn}", h.lookup.GetByISBN)
	v1.HandleFunc("GET /v1/lookup/books/{id}", h.lookup.GetByID)

	v1.HandleFunc("GET /v1/cloud/user", h.cloud.Status)
	v1.HandleFunc("POST /v1/cloud/signin", h.cloud.SignIn)
	v1.HandleFunc("POST /v1/cloud/signout", h.cloud.SignOut)
	v1.HandleFunc("POST /v1/cloud/authorize", h.cloud.Authorize)
	v1.HandleFunc("POST /v1/cloud/revoke", h.cloud.Revoke)
	v1.HandleFunc("POST /v1/cloud/export/{target}", h.export.Export)
	v1.HandleFunc("POST /v1/cloud/import/{target}", h.export.Import)

	router.Handle("/v1/", httpx.AuthMiddleware(cfg.APISecret)(v1))
	router.HandleFunc("GET /v1/cloud/callback", h.cloud.Callback)
	router.HandleFunc("POST /internal/jobs/refresh", h.refresh.Refresh)

	// validated at load time
	proxies, _ := cfg.ProxyPrefixes()
	limiter := httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, proxies)

	return httpx.Chain(router,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(log),
		httpx.RecoveryMiddleware(log),
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.CORSOrigins),
		limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes),
	)
}

// bookSubresource serves GET /v1/books/isbn/{isbn} and
// GET /v1/books/{id}/categories. ServeMux rejects the two as separate
// patterns since both match /v1/books/isbn/categories.
func (h handlers) bookSubresource(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.PathValue("id") == "isbn":
		r.SetPathValue("isbn", r.PathValue("sub"))
		h.books.GetByISBN(w, r)
	case r.PathValue("sub") == "categories":
		h.categories.ListByBook(w, r)
	default:
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}
