// Package tokenstore keeps the OAuth token snapshot encrypted at rest and
// lets callers observe it.
package tokenstore

import (
	"context"
	"time"
)

// DefaultLifetime is assumed when the issuer does not report an expiry.
const DefaultLifetime = 60 * time.Minute

type Snapshot struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiration   time.Time `json:"expiration"`
}

// NewSnapshot stamps the expiration relative to now. A non-positive
// expiresIn falls back to DefaultLifetime.
func NewSnapshot(accessToken, refreshToken string, expiresIn time.Duration, now time.Time) Snapshot {
	if expiresIn <= 0 {
		expiresIn = DefaultLifetime
	}
	return Snapshot{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Expiration:   now.Add(expiresIn),
	}
}

func (s Snapshot) Expired(now time.Time) bool {
	return !now.Before(s.Expiration)
}

func (s *Snapshot) equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.AccessToken == o.AccessToken &&
		s.RefreshToken == o.RefreshToken &&
		s.Expiration.Equal(o.Expiration)
}

// Storage is what the cloud layer depends on.
type Storage interface {
	Store(ctx context.Context, snapshot Snapshot) error
	// Read returns nil when nothing usable is stored.
	Read(ctx context.Context) (*Snapshot, error)
	Clear(ctx context.Context) error
	// Watch emits the current snapshot, then each distinct change, until
	// ctx is done.
	Watch(ctx context.Context) <-chan *Snapshot
}
