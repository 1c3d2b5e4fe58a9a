package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"biblomnemon/internal/logging"
	"biblomnemon/internal/preferences"
)

const snapshotKey = "snapshot"

type Cipher interface {
	Encrypt(plaintext, aad string) (string, error)
	Decrypt(ciphertext, aad string) (string, error)
}

type payload struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	Expiration   int64   `json:"expiration"`
}

type subscriber struct {
	ch chan *Snapshot

	// queued is the value placed in ch by the last offer.
	queued    *Snapshot
	hasQueued bool
	// seen is the last value the receiver took from ch.
	seen    *Snapshot
	hasSeen bool
}

// offer delivers v unless the receiver already holds an equal value. A value
// still sitting in the slot is replaced, so slow receivers get the latest.
// Callers hold the store's mu.
func (s *subscriber) offer(v *Snapshot) {
	if s.hasQueued {
		select {
		case <-s.ch:
			// never received; seen is unchanged
		default:
			s.seen, s.hasSeen = s.queued, true
		}
		s.queued, s.hasQueued = nil, false
	}
	if s.hasSeen && s.seen.equal(v) {
		return
	}
	select {
	case s.ch <- v:
		s.queued, s.hasQueued = v, true
	default:
	}
}

// EncryptedStore persists the snapshot as ciphertext in a preferences.Store.
type EncryptedStore struct {
	prefs  preferences.Store
	cipher Cipher
	log    logging.Logger

	// wmu orders writes against new subscriptions.
	wmu  sync.Mutex
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewEncryptedStore(prefs preferences.Store, cipher Cipher, log logging.Logger) *EncryptedStore {
	return &EncryptedStore{
		prefs:  prefs,
		cipher: cipher,
		log:    log.With("component", "tokenstore"),
		subs:   make(map[*subscriber]struct{}),
	}
}

func (s *EncryptedStore) Store(ctx context.Context, snapshot Snapshot) error {
	p := payload{Expiration: snapshot.Expiration.UnixMilli()}
	if snapshot.AccessToken != "" {
		p.AccessToken = &snapshot.AccessToken
	}
	if snapshot.RefreshToken != "" {
		p.RefreshToken = &snapshot.RefreshToken
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	sealed, err := s.cipher.Encrypt(string(raw), "")
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.prefs.Set(ctx, snapshotKey, []byte(sealed)); err != nil {
		return err
	}
	stored := snapshot
	stored.Expiration = time.UnixMilli(p.Expiration)
	s.publish(&stored)
	return nil
}

func (s *EncryptedStore) Read(ctx context.Context) (*Snapshot, error) {
	raw, err := s.prefs.Get(ctx, snapshotKey)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	plain, err := s.cipher.Decrypt(string(raw), "")
	if err != nil {
		s.log.Warn(ctx, "token snapshot unreadable, treating as absent", "err", err)
		return nil, nil
	}
	var p payload
	if err := json.Unmarshal([]byte(plain), &p); err != nil {
		s.log.Warn(ctx, "token snapshot malformed, treating as absent", "err", err)
		return nil, nil
	}

	snap := &Snapshot{Expiration: time.UnixMilli(p.Expiration)}
	if p.AccessToken != nil {
		snap.AccessToken = *p.AccessToken
	}
	if p.RefreshToken != nil {
		snap.RefreshToken = *p.RefreshToken
	}
	return snap, nil
}

func (s *EncryptedStore) Clear(ctx context.Context) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.prefs.Delete(ctx, snapshotKey); err != nil {
		return err
	}
	s.publish(nil)
	return nil
}

func (s *EncryptedStore) Watch(ctx context.Context) <-chan *Snapshot {
	sub := &subscriber{ch: make(chan *Snapshot, 1)}

	s.wmu.Lock()
	current, err := s.Read(ctx)
	if err != nil {
		s.log.Warn(ctx, "initial token snapshot read failed", "err", err)
	}
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	sub.offer(current)
	s.mu.Unlock()
	s.wmu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, sub)
		close(sub.ch)
		s.mu.Unlock()
	}()
	return sub.ch
}

func (s *EncryptedStore) publish(v *Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		sub.offer(v)
	}
}
