// Package auth signs the library into a Google account and keeps the OAuth
// authorization needed for cloud export.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"biblomnemon/internal/logging"
	"biblomnemon/internal/platform/crypto"
	"biblomnemon/internal/settings"
	"biblomnemon/internal/tokenstore"

	"golang.org/x/oauth2"
)

var (
	ErrNotSignedIn   = errors.New("not signed in")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNoScopes      = errors.New("scopes must not be empty")
	ErrInvalidCode   = errors.New("authorization code must not be blank")
	ErrInvalidToken  = errors.New("invalid id token")
)

// StateTTL bounds the consent round trip.
const StateTTL = 10 * time.Minute

// IDTokenVerifier checks a Google ID token and returns the account it names.
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (settings.CloudUser, error)
}

// UserStore is the account half of the settings store.
type UserStore interface {
	User(ctx context.Context) (*settings.CloudUser, error)
	SetUser(ctx context.Context, u settings.CloudUser) error
	ClearUser(ctx context.Context) error
}

type Manager struct {
	users       UserStore
	tokens      tokenstore.Storage
	verifier    IDTokenVerifier
	authz       Authorization
	oauth       *oauth2.Config
	stateSecret string
	log         logging.Logger

	// consumed holds state nonces already redeemed, until they expire.
	mu       sync.Mutex
	consumed map[string]time.Time
	now      func() time.Time
}

func NewManager(
	users UserStore,
	tokens tokenstore.Storage,
	verifier IDTokenVerifier,
	authz Authorization,
	oauth *oauth2.Config,
	stateSecret string,
	log logging.Logger,
) *Manager {
	return &Manager{
		users:       users,
		tokens:      tokens,
		verifier:    verifier,
		authz:       authz,
		oauth:       oauth,
		stateSecret: stateSecret,
		log:         log.With("component", "cloud_auth"),
		consumed:    make(map[string]time.Time),
		now:         time.Now,
	}
}

// SignIn verifies idToken and remembers its account.
func (m *Manager) SignIn(ctx context.Context, idToken string) (settings.CloudUser, error) {
	if strings.TrimSpace(idToken) == "" {
		return settings.CloudUser{}, ErrInvalidToken
	}
	u, err := m.verifier.Verify(ctx, idToken)
	if err != nil {
		return settings.CloudUser{}, err
	}
	u = settings.NewCloudUser(u.ID, u.Name, u.Email, u.Avatar)
	if err := m.users.SetUser(ctx, u); err != nil {
		return settings.CloudUser{}, fmt.Errorf("save user: %w", err)
	}
	m.log.Info(ctx, "signed in", "user_id", u.ID)
	return u, nil
}

// SignOut forgets the account and its tokens.
func (m *Manager) SignOut(ctx context.Context) error {
	return errors.Join(m.users.ClearUser(ctx), m.tokens.Clear(ctx))
}

func (m *Manager) IsSignedIn(ctx context.Context) (bool, error) {
	u, err := m.users.User(ctx)
	return u != nil, err
}

// User returns nil when nobody is signed in.
func (m *Manager) User(ctx context.Context) (*settings.CloudUser, error) {
	return m.users.User(ctx)
}

// AuthorizationURL starts consent for scopes. The returned URL carries a
// signed state that CompleteAuthorization checks.
func (m *Manager) AuthorizationURL(scopes []string) (string, error) {
	if len(scopes) == 0 {
		return "", ErrNoScopes
	}
	state, err := crypto.GenerateStateToken(m.stateSecret, scopes, StateTTL)
	if err != nil {
		return "", err
	}
	cfg := *m.oauth
	cfg.Scopes = scopes
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// CompleteAuthorization finishes consent with the code Google sent back.
// Each state is accepted once.
func (m *Manager) CompleteAuthorization(ctx context.Context, code, state string) error {
	claims, err := crypto.ParseStateToken(m.stateSecret, state)
	if err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return ErrInvalidCode
	}
	if err := m.consume(claims); err != nil {
		return err
	}
	if _, err := m.authz.Authorize(ctx, code); err != nil {
		return err
	}
	m.log.Info(ctx, "authorized")
	return nil
}

func (m *Manager) consume(claims *crypto.StateClaims) error {
	if claims.ID == "" {
		return fmt.Errorf("%w: missing nonce", crypto.ErrInvalidState)
	}
	expires := m.now().Add(StateTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for nonce, exp := range m.consumed {
		if now.After(exp) {
			delete(m.consumed, nonce)
		}
	}
	if _, ok := m.consumed[claims.ID]; ok {
		return fmt.Errorf("%w: already used", crypto.ErrInvalidState)
	}
	m.consumed[claims.ID] = expires
	return nil
}

// IsAuthorized reports whether an access token is stored.
func (m *Manager) IsAuthorized(ctx context.Context) (bool, error) {
	s, err := m.tokens.Read(ctx)
	if err != nil {
		return false, err
	}
	return s != nil && strings.TrimSpace(s.AccessToken) != "", nil
}

// Revoke withdraws the authorization and drops the stored tokens.
func (m *Manager) Revoke(ctx context.Context) error {
	if err := m.authz.Revoke(ctx); err != nil {
		return err
	}
	m.log.Info(ctx, "authorization revoked")
	return nil
}

// TokenSource returns a source for API calls. Tokens refreshed through it
// are written back to storage.
func (m *Manager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	s, err := m.tokens.Read(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil || strings.TrimSpace(s.AccessToken) == "" {
		return nil, ErrNotAuthorized
	}
	tok := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiration,
		TokenType:    "Bearer",
	}
	return &persistingSource{
		ctx:    ctx,
		base:   m.oauth.TokenSource(ctx, tok),
		tokens: m.tokens,
		last:   s.AccessToken,
		log:    m.log,
	}, nil
}
