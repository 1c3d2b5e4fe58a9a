package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"biblomnemon/internal/logging"
	"biblomnemon/internal/platform/crypto"
	"biblomnemon/internal/settings"
	"biblomnemon/internal/testutil"
	"biblomnemon/internal/tokenstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

const stateSecret = "state-secret"

type stubVerifier struct {
	user settings.CloudUser
	err  error
}

func (v stubVerifier) Verify(context.Context, string) (settings.CloudUser, error) {
	return v.user, v.err
}

// googleStub serves the token and revoke endpoints.
type googleStub struct {
	*httptest.Server

	mu          sync.Mutex
	forms       []url.Values
	revokeCode  int
	accessToken string
}

func newGoogleStub(t *testing.T) *googleStub {
	g := &googleStub{revokeCode: http.StatusOK, accessToken: "access-1"}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		g.record(r.PostForm)
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("grant_type") == "refresh_token" {
			_, _ = w.Write([]byte(`{"access_token":"access-2","expires_in":3600,"token_type":"Bearer"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"` + g.accessToken + `","refresh_token":"refresh-1","expires_in":3600,"token_type":"Bearer"}`))
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		g.record(r.PostForm)
		w.WriteHeader(g.revokeCode)
	})
	g.Server = httptest.NewServer(mux)
	t.Cleanup(g.Close)
	return g
}

func (g *googleStub) record(v url.Values) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forms = append(g.forms, v)
}

func (g *googleStub) requests() []url.Values {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]url.Values(nil), g.forms...)
}

type fixture struct {
	manager *Manager
	google  *googleStub
	tokens  *tokenstore.EncryptedStore
	users   *settings.Store
	oauth   *oauth2.Config
}

func newFixture(t *testing.T, verifier IDTokenVerifier) *fixture {
	t.Helper()
	g := newGoogleStub(t)

	cipher, err := crypto.NewAEAD(crypto.AES256GCM, bytes.Repeat([]byte{7}, crypto.KeySize), "biblomnemon")
	require.NoError(t, err)
	prefs := testutil.NewMemoryPreferences()
	tokens := tokenstore.NewEncryptedStore(prefs, cipher, logging.Nop())
	users := settings.NewStore(prefs)

	cfg := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/v1/cloud/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/o/oauth2/auth",
			TokenURL:  g.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	authz := NewBackendAuthorization(cfg, tokens, g.Client(), g.URL+"/revoke")

	return &fixture{
		manager: NewManager(users, tokens, verifier, authz, cfg, stateSecret, logging.Nop()),
		google:  g,
		tokens:  tokens,
		users:   users,
		oauth:   cfg,
	}
}

func (f *fixture) state(t *testing.T) string {
	t.Helper()
	s, err := crypto.GenerateStateToken(stateSecret, []string{"scope"}, time.Minute)
	require.NoError(t, err)
	return s
}

func TestManager_SignIn(t *testing.T) {
	f := newFixture(t, stubVerifier{user: settings.CloudUser{
		ID: "42", Name: "Ada", Email: "ada@example.com", Avatar: "http://img.example.com/a.png",
	}})
	ctx := context.Background()

	u, err := f.manager.SignIn(ctx, "id-token")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/a.png", u.Avatar)

	signedIn, err := f.manager.IsSignedIn(ctx)
	require.NoError(t, err)
	assert.True(t, signedIn)

	stored, err := f.manager.User(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestManager_SignIn_Rejected(t *testing.T) {
	f := newFixture(t, stubVerifier{err: ErrInvalidToken})
	ctx := context.Background()

	_, err := f.manager.SignIn(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.manager.SignIn(ctx, "forged")
	assert.ErrorIs(t, err, ErrInvalidToken)

	signedIn, err := f.manager.IsSignedIn(ctx)
	require.NoError(t, err)
	assert.False(t, signedIn)
}

func TestManager_SignOut_ClearsUserAndTokens(t *testing.T) {
	f := newFixture(t, stubVerifier{user: settings.CloudUser{ID: "42"}})
	ctx := context.Background()

	_, err := f.manager.SignIn(ctx, "id-token")
	require.NoError(t, err)
	require.NoError(t, f.tokens.Store(ctx, tokenstore.NewSnapshot("a", "r", 0, time.Now())))

	require.NoError(t, f.manager.SignOut(ctx))

	signedIn, _ := f.manager.IsSignedIn(ctx)
	assert.False(t, signedIn)
	authorized, _ := f.manager.IsAuthorized(ctx)
	assert.False(t, authorized)
}

func TestManager_AuthorizationURL(t *testing.T) {
	f := newFixture(t, stubVerifier{})

	_, err := f.manager.AuthorizationURL(nil)
	assert.ErrorIs(t, err, ErrNoScopes)

	raw, err := f.manager.AuthorizationURL([]string{"https://www.googleapis.com/auth/spreadsheets"})
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "https://www.googleapis.com/auth/spreadsheets", q.Get("scope"))
	assert.Equal(t, "client", q.Get("client_id"))

	claims, err := crypto.ParseStateToken(stateSecret, q.Get("state"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/spreadsheets"}, claims.Scopes)
	assert.Empty(t, f.oauth.Scopes)
}

func TestManager_CompleteAuthorization(t *testing.T) {
	f := newFixture(t, stubVerifier{})
	ctx := context.Background()

	err := f.manager.CompleteAuthorization(ctx, "code", "not-a-state")
	assert.ErrorIs(t, err, crypto.ErrInvalidState)

	err = f.manager.CompleteAuthorization(ctx, " ", f.state(t))
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Empty(t, f.google.requests())

	require.NoError(t, f.manager.CompleteAuthorization(ctx, "auth-code", f.state(t)))

	reqs := f.google.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "auth-code", reqs[0].Get("code"))
	assert.Equal(t, "authorization_code", reqs[0].Get("grant_type"))

	snap, err := f.tokens.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "access-1", snap.AccessToken)
	assert.Equal(t, "refresh-1", snap.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), snap.Expiration, time.Minute)

	authorized, err := f.manager.IsAuthorized(ctx)
	require.NoError(t, err)
	assert.True(t, authorized)
}

func TestManager_CompleteAuthorization_StateIsSingleUse(t *testing.T) {
	f := newFixture(t, stubVerifier{})
	ctx := context.Background()
	state := f.state(t)

	require.NoError(t, f.manager.CompleteAuthorization(ctx, "auth-code", state))

	err := f.manager.CompleteAuthorization(ctx, "auth-code", state)
	assert.ErrorIs(t, err, crypto.ErrInvalidState)
	assert.Len(t, f.google.requests(), 1)

	// a fresh consent still works
	require.NoError(t, f.manager.CompleteAuthorization(ctx, "auth-code", f.state(t)))
	assert.Len(t, f.google.requests(), 2)
}

func TestManager_ConsumedStatesExpire(t *testing.T) {
	f := newFixture(t, stubVerifier{})
	now := time.Now()
	f.manager.now = func() time.Time { return now }

	claims, err := crypto.ParseStateToken(stateSecret, f.state(t))
	require.NoError(t, err)
	require.NoError(t, f.manager.consume(claims))
	assert.Len(t, f.manager.consumed, 1)

	now = now.Add(2 * time.Minute)
	other, err := crypto.ParseStateToken(stateSecret, f.state(t))
	require.NoError(t, err)
	require.NoError(t, f.manager.consume(other))
	assert.Len(t, f.manager.consumed, 1)
	assert.Contains(t, f.manager.consumed, other.ID)
}

func TestManager_IsAuthorized_BlankAccessToken(t *testing.T) {
	f := newFixture(t, stubVerifier{})
	ctx := context.Background()
	require.NoError(t, f.tokens.Store(ctx, tokenstore.Snapshot{RefreshToken: "r", Expiration: time.Now().Add(time.Hour)}))

	authorized, err := f.manager.IsAuthorized(ctx)
	require.NoError(t, err)
	assert.False(t, authorized)
}

func TestBackendAuthorization_Revoke(t *testing.T) {
	t.Run("prefers refresh token", func(t *testing.T) {
		f := newFixture(t, stubVerifier{})
		ctx := context.Background()
		require.NoError(t, f.tokens.Store(ctx, tokenstore.NewSnapshot("a", "r", 0, time.Now())))

		require.NoError(t, f.manager.Revoke(ctx))

		reqs := f.google.requests()
		require.Len(t, reqs, 1)
		assert.Equal(t, "r", reqs[0].Get("token"))
		snap, _ := f.tokens.Read(ctx)
		assert.Nil(t, snap)
	})

	t.Run("falls back to access token", func(t *testing.T) {
		f := newFixture(t, stubVerifier{})
		ctx := context.Background()
		require.NoError(t, f.tokens.Store(ctx, tokenstore.NewSnapshot("a", "", 0, time.Now())))

		require.NoError(t, f.manager.Revoke(ctx))
		assert.Equal(t, "a", f.google.requests()[0].Get("token"))
	})

	t.Run("nothing stored", func(t *testing.T) {
		f := newFixture(t, stubVerifier{})
		require.NoError(t, f.manager.Revoke(context.Background()))
		assert.Empty(t, f.google.requests())
	})

	t.Run("rejected keeps tokens", func(t *testing.T) {
		f := newFixture(t, stubVerifier{})
		f.google.revokeCode = http.StatusBadRequest
		ctx := context.Background()
		require.NoError(t, f.tokens.Store(ctx, tokenstore.NewSnapshot("a", "r", 0, time.Now())))

		err := f.manager.Revoke(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")

		snap, _ := f.tokens.Read(ctx)
		assert.NotNil(t, snap)
	})
}

func TestLocalAuthorization(t *testing.T) {
	cipher, err := crypto.NewAEAD(crypto.AES256GCM, bytes.Repeat([]byte{3}, crypto.KeySize), "")
	require.NoError(t, err)
	tokens := tokenstore.NewEncryptedStore(testutil.NewMemoryPreferences(), cipher, logging.Nop())
	a := NewLocalAuthorization(tokens)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	ctx := context.Background()

	_, err = a.Authorize(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidCode)

	s, err := a.Authorize(ctx, "device-token")
	require.NoError(t, err)
	assert.Equal(t, "device-token", s.AccessToken)
	assert.Empty(t, s.RefreshToken)
	assert.Equal(t, now.Add(tokenstore.DefaultLifetime), s.Expiration)

	require.NoError(t, a.Revoke(ctx))
	got, err := tokens.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_TokenSource(t *testing.T) {
	f := newFixture(t, stubVerifier{})
	ctx := context.Background()

	_, err := f.manager.TokenSource(ctx)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	expired := tokenstore.Snapshot{AccessToken: "stale", RefreshToken: "refresh-1", Expiration: time.Now().Add(-time.Minute)}
	require.NoError(t, f.tokens.Store(ctx, expired))

	ts, err := f.manager.TokenSource(ctx)
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok.AccessToken)

	snap, err := f.tokens.Read(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "access-2", snap.AccessToken)
	assert.Equal(t, "refresh-1", snap.RefreshToken)
}

func TestGoogleVerifier(t *testing.T) {
	v := NewGoogleVerifier("client")

	t.Run("maps claims", func(t *testing.T) {
		v.validate = func(_ context.Context, token, aud string) (*idtoken.Payload, error) {
			assert.Equal(t, "tok", token)
			assert.Equal(t, "client", aud)
			return &idtoken.Payload{Subject: "sub-1", Claims: map[string]interface{}{
				"name":    "Ada",
				"email":   "ada@example.com",
				"picture": "http://img.example.com/p.png",
			}}, nil
		}
		u, err := v.Verify(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, settings.CloudUser{ID: "sub-1", Name: "Ada", Email: "ada@example.com", Avatar: "https://img.example.com/p.png"}, u)
	})

	t.Run("rejects invalid", func(t *testing.T) {
		v.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
			return nil, errors.New("audience mismatch")
		}
		_, err := v.Verify(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
