// Package settings stores the signed-in cloud account and the export
// spreadsheet id.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"biblomnemon/internal/preferences"
)

const (
	userKey          = "user_account"
	spreadsheetIDKey = "spreadsheet_id"
)

// CloudUser is the account the library is signed in with.
type CloudUser struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// NewCloudUser builds a user, upgrading an http avatar URL to https.
func NewCloudUser(id, name, email, avatar string) CloudUser {
	return CloudUser{
		ID:     id,
		Name:   name,
		Email:  email,
		Avatar: ForceHTTPS(avatar),
	}
}

func ForceHTTPS(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

type Store struct {
	prefs preferences.Store
}

func NewStore(prefs preferences.Store) *Store {
	return &Store{prefs: prefs}
}

// User returns nil when nobody is signed in.
func (s *Store) User(ctx context.Context) (*CloudUser, error) {
	raw, err := s.prefs.Get(ctx, userKey)
	if err != nil || raw == nil {
		return nil, err
	}
	var u CloudUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (s *Store) SetUser(ctx context.Context, u CloudUser) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.prefs.Set(ctx, userKey, raw)
}

func (s *Store) ClearUser(ctx context.Context) error {
	return s.prefs.Delete(ctx, userKey)
}

// SpreadsheetID returns "" when no spreadsheet has been created yet.
func (s *Store) SpreadsheetID(ctx context.Context) (string, error) {
	raw, err := s.prefs.Get(ctx, spreadsheetIDKey)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *Store) SetSpreadsheetID(ctx context.Context, id string) error {
	return s.prefs.Set(ctx, spreadsheetIDKey, []byte(id))
}

func (s *Store) ClearSpreadsheetID(ctx context.Context) error {
	return s.prefs.Delete(ctx, spreadsheetIDKey)
}
