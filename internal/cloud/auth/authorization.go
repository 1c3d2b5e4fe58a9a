package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"biblomnemon/internal/logging"
	"biblomnemon/internal/tokenstore"

	"golang.org/x/oauth2"
)

const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// Authorization turns a consent result into a stored token snapshot.
type Authorization interface {
	Authorize(ctx context.Context, code string) (tokenstore.Snapshot, error)
	Revoke(ctx context.Context) error
}

// BackendAuthorization exchanges server auth codes for access and refresh
// tokens.
type BackendAuthorization struct {
	oauth      *oauth2.Config
	tokens     tokenstore.Storage
	httpClient *http.Client
	revokeURL  string
	now        func() time.Time
}

func NewBackendAuthorization(oauth *oauth2.Config, tokens tokenstore.Storage, httpClient *http.Client, revokeURL string) *BackendAuthorization {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if revokeURL == "" {
		revokeURL = DefaultRevokeURL
	}
	return &BackendAuthorization{
		oauth:      oauth,
		tokens:     tokens,
		httpClient: httpClient,
		revokeURL:  revokeURL,
		now:        time.Now,
	}
}

func (a *BackendAuthorization) Authorize(ctx context.Context, code string) (tokenstore.Snapshot, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	tok, err := a.oauth.Exchange(ctx, code)
	if err != nil {
		return tokenstore.Snapshot{}, fmt.Errorf("exchange code: %w", err)
	}

	s := tokenstore.NewSnapshot(tok.AccessToken, tok.RefreshToken, 0, a.now())
	if !tok.Expiry.IsZero() {
		s.Expiration = tok.Expiry
	}
	if err := a.tokens.Store(ctx, s); err != nil {
		return tokenstore.Snapshot{}, err
	}
	return s, nil
}

// Revoke asks Google to revoke the refresh token, or the access token when
// there is none, then clears storage.
func (a *BackendAuthorization) Revoke(ctx context.Context) error {
	s, err := a.tokens.Read(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return a.tokens.Clear(ctx)
	}

	token := s.RefreshToken
	if token == "" {
		token = s.AccessToken
	}
	if token == "" {
		return errors.New("stored snapshot has no token to revoke")
	}

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("token revocation failed: %d", resp.StatusCode)
	}

	return a.tokens.Clear(ctx)
}

// LocalAuthorization accepts an access token granted on the device. There
// is no refresh token, so the token lives for tokenstore.DefaultLifetime.
type LocalAuthorization struct {
	tokens tokenstore.Storage
	now    func() time.Time
}

func NewLocalAuthorization(tokens tokenstore.Storage) *LocalAuthorization {
	return &LocalAuthorization{tokens: tokens, now: time.Now}
}

func (a *LocalAuthorization) Authorize(ctx context.Context, accessToken string) (tokenstore.Snapshot, error) {
	if strings.TrimSpace(accessToken) == "" {
		return tokenstore.Snapshot{}, ErrInvalidCode
	}
	s := tokenstore.NewSnapshot(accessToken, "", 0, a.now())
	if err := a.tokens.Store(ctx, s); err != nil {
		return tokenstore.Snapshot{}, err
	}
	return s, nil
}

func (a *LocalAuthorization) Revoke(ctx context.Context) error {
	return a.tokens.Clear(ctx)
}

// persistingSource writes refreshed tokens back to storage.
type persistingSource struct {
	ctx    context.Context
	base   oauth2.TokenSource
	tokens tokenstore.Storage
	log    logging.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	s := tokenstore.Snapshot{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiration:   tok.Expiry,
	}
	if err := p.tokens.Store(p.ctx, s); err != nil {
		p.log.Warn(p.ctx, "persist refreshed token failed", "error", err)
	} else {
		p.last = tok.AccessToken
	}
	return tok, nil
}
