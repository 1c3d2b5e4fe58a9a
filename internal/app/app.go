// Package app builds the services shared by the API server and the CLI.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"biblomnemon/db"
	"biblomnemon/internal/activity"
	"biblomnemon/internal/category"
	"biblomnemon/internal/cloud/auth"
	"biblomnemon/internal/cloud/export"
	"biblomnemon/internal/config"
	"biblomnemon/internal/library"
	"biblomnemon/internal/logging"
	"biblomnemon/internal/lookup"
	"biblomnemon/internal/platform/crypto"
	"biblomnemon/internal/platform/googlebooks"
	"biblomnemon/internal/platform/openlibrary"
	"biblomnemon/internal/preferences"
	"biblomnemon/internal/refresh"
	"biblomnemon/internal/settings"
	"biblomnemon/internal/tokenstore"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	tokenKeysetName = "keyset"
	tokenAAD        = "oauth_tokens"
	stateKeyInfo    = "oauth_state"
)

type App struct {
	Config *config.Config
	Log    logging.Logger
	DB     *pgxpool.Pool
	Prefs  preferences.Store

	Books      *library.Service
	Categories *category.Service
	Activities *activity.Service
	Lookup     *lookup.Service
	Settings   *settings.Store
	Tokens     tokenstore.Storage
	Cloud      *auth.Manager
	Storages   map[string]export.Storage
	Refresh    *refresh.Service

	closers []func() error
}

// New connects to the database and builds every service. Close releases
// what New opened.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}
	if err := a.build(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	timeout := cfg.Database.Timeout.Std()

	pool, err := OpenDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.DB = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	if cfg.Database.MigrateOnStart {
		n, err := Migrate(ctx, pool)
		if err != nil {
			return err
		}
		a.Log.Info(ctx, "migrations applied", "count", n)
	}

	if err := a.openPreferences(ctx, pool, timeout); err != nil {
		return err
	}
	master, err := a.openTokens(ctx)
	if err != nil {
		return err
	}
	a.Settings = settings.NewStore(a.Prefs)

	olClient := openlibrary.NewClient(cfg.Lookup.UserAgent, cfg.Lookup.OpenLibraryRPS, cfg.Lookup.MaxRetries)
	gbClient := googlebooks.NewClient(cfg.Lookup.GoogleBooksAPIKey, cfg.Lookup.GoogleBooksRPS, cfg.Lookup.MaxRetries)
	sources, err := lookup.Order([]lookup.Source{
		lookup.NewGoogleSource(gbClient),
		lookup.NewOpenLibrarySource(olClient, a.Log),
	}, cfg.Lookup.Sources)
	if err != nil {
		return fmt.Errorf("lookup sources: %w", err)
	}
	a.Lookup = lookup.NewService(a.Log, sources...)

	bookRepo := library.NewPostgresRepo(pool, timeout)
	a.Categories = category.NewService(category.NewPostgresRepo(pool, timeout))
	a.Books = library.NewService(bookRepo, a.Categories, a.Lookup)
	a.Activities = activity.NewService(activity.NewPostgresRepo(pool, timeout))

	a.Refresh = refresh.NewService(olClient, bookRepo, refresh.NewPostgresRepo(pool, timeout), refresh.Config{
		BatchSize:     cfg.Refresh.BatchSize,
		MaxBooks:      cfg.Refresh.MaxBooks,
		FreshnessDays: cfg.Refresh.FreshnessDays,
	}, a.Log)

	secret, err := stateSecret(cfg.Server.APISecret, master)
	if err != nil {
		return fmt.Errorf("oauth state key: %w", err)
	}
	a.buildCloud(secret)
	return a.buildStorages(ctx)
}

func (a *App) openPreferences(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if a.Config.Tokens.PrefsDSN == "" {
		a.Prefs = preferences.NewPostgresStore(pool, timeout)
		return nil
	}
	store, err := preferences.OpenSQLite(ctx, a.Config.Tokens.PrefsDSN)
	if err != nil {
		return fmt.Errorf("open preferences: %w", err)
	}
	a.Prefs = store
	a.closers = append(a.closers, store.Close)
	return nil
}

// openTokens returns the master key so other purpose-bound keys can be
// derived from it.
func (a *App) openTokens(ctx context.Context) ([]byte, error) {
	template, err := crypto.ParseKeyTemplate(a.Config.Tokens.KeyTemplate)
	if err != nil {
		return nil, err
	}
	master, err := crypto.MasterKey(ctx, a.Prefs, a.Config.Tokens.MasterKey, a.Config.Tokens.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("token master key: %w", err)
	}
	cipher, err := crypto.OpenKeyset(ctx, a.Prefs, tokenKeysetName, template, master, tokenAAD)
	if err != nil {
		return nil, fmt.Errorf("token keyset: %w", err)
	}
	a.Tokens = tokenstore.NewEncryptedStore(a.Prefs, cipher, a.Log)
	return master, nil
}

func (a *App) buildCloud(stateKey string) {
	g := a.Config.Google
	oauthCfg := &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.RedirectURL,
		Endpoint:     google.Endpoint,
	}

	var authz auth.Authorization = auth.NewLocalAuthorization(a.Tokens)
	if g.UseBackendAuth {
		httpClient := &http.Client{Timeout: 15 * time.Second}
		authz = auth.NewBackendAuthorization(oauthCfg, a.Tokens, httpClient, auth.DefaultRevokeURL)
	}

	a.Cloud = auth.NewManager(
		a.Settings,
		a.Tokens,
		auth.NewGoogleVerifier(g.ClientID),
		authz,
		oauthCfg,
		stateKey,
		a.Log,
	)
}

func (a *App) buildStorages(ctx context.Context) error {
	data := export.NewLibraryDataset(a.Books, a.Categories, a.Activities)
	a.Storages = map[string]export.Storage{
		export.TargetSheets: export.NewSheetsStorage(a.Cloud, a.Settings, data, export.GoogleWriterFactory(), a.Config.Google.AppName, a.Log),
	}
	if !a.Config.S3Enabled() {
		return nil
	}

	s3cfg := a.Config.S3
	client, err := export.NewS3Client(ctx, export.S3Config{
		Endpoint:  s3cfg.Endpoint,
		Region:    s3cfg.Region,
		AccessKey: s3cfg.AccessKey,
		SecretKey: s3cfg.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}
	a.Storages[export.TargetS3] = export.NewObjectStorage(client, s3cfg.Bucket, s3cfg.ObjectKey, data, a.Log)
	return nil
}

// Ping reports whether the database answers.
func (a *App) Ping(ctx context.Context) error {
	return a.DB.Ping(ctx)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenDB creates a pool and checks that the server answers.
func OpenDB(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database (%s): %w", RedactDSN(dsn), err)
	}
	return pool, nil
}

// Migrate runs the embedded schema migrations through the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	return db.Up(ctx, sqlDB)
}

// stateSecret prefers the API secret. Without one the key is derived from
// the token master key, so consent links survive restarts.
func stateSecret(configured string, master []byte) (string, error) {
	if configured != "" {
		return configured, nil
	}
	key, err := crypto.SubKey(master, stateKeyInfo)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// RedactDSN hides the credentials of a URL-style DSN.
func RedactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
