package crypto

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// KeyValue is the persistence a keyset needs. preferences.Store satisfies it.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

var ErrNoMasterKey = errors.New("no master key configured")

const saltKey = "keyset_salt"

type storedKeyset struct {
	Template KeyTemplate `json:"template"`
	Key      string      `json:"key"`
}

// MasterKey resolves the key-encryption key. A base64 key wins over a
// passphrase; the passphrase salt is created on first use and persisted.
func MasterKey(ctx context.Context, kv KeyValue, encodedKey, passphrase string) ([]byte, error) {
	if encodedKey != "" {
		key, err := base64.StdEncoding.DecodeString(encodedKey)
		if err != nil {
			return nil, fmt.Errorf("decode master key: %w", err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("%w: master key has %d bytes", ErrInvalidKey, len(key))
		}
		return key, nil
	}
	if passphrase == "" {
		return nil, ErrNoMasterKey
	}

	salt, err := kv.Get(ctx, saltKey)
	if err != nil {
		return nil, err
	}
	if salt == nil {
		salt, err = GenerateKey()
		if err != nil {
			return nil, err
		}
		salt = salt[:16]
		if err := kv.Set(ctx, saltKey, salt); err != nil {
			return nil, fmt.Errorf("store salt: %w", err)
		}
	}
	return DeriveKey(passphrase, salt), nil
}

// OpenKeyset loads the data key stored under name, wrapped by master, or
// creates it with the given template. The returned AEAD binds aad by default.
// An existing keyset keeps the template it was created with.
func OpenKeyset(ctx context.Context, kv KeyValue, name string, template KeyTemplate, master []byte, aad string) (*AEAD, error) {
	wrapper, err := NewAEAD(AES256GCM, master, "keyset:"+name)
	if err != nil {
		return nil, err
	}

	raw, err := kv.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("read keyset %s: %w", name, err)
	}

	var ks storedKeyset
	if raw == nil {
		key, err := GenerateKey()
		if err != nil {
			return nil, err
		}
		ks = storedKeyset{Template: template, Key: base64.StdEncoding.EncodeToString(key)}
		payload, err := json.Marshal(ks)
		if err != nil {
			return nil, err
		}
		wrapped, err := wrapper.Encrypt(string(payload), "")
		if err != nil {
			return nil, err
		}
		if err := kv.Set(ctx, name, []byte(wrapped)); err != nil {
			return nil, fmt.Errorf("store keyset %s: %w", name, err)
		}
	} else {
		payload, err := wrapper.Decrypt(string(raw), "")
		if err != nil {
			return nil, fmt.Errorf("unwrap keyset %s: %w", name, err)
		}
		if err := json.Unmarshal([]byte(payload), &ks); err != nil {
			return nil, fmt.Errorf("decode keyset %s: %w", name, err)
		}
	}

	key, err := base64.StdEncoding.DecodeString(ks.Key)
	if err != nil {
		return nil, fmt.Errorf("decode keyset %s: %w", name, err)
	}
	return NewAEAD(ks.Template, key, aad)
}
