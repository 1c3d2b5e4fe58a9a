package crypto

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemKV() *memKV {
	return &memKV{data: map[string][]byte{}}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.data[key], nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func TestMasterKey(t *testing.T) {
	ctx := context.Background()

	t.Run("encoded key wins", func(t *testing.T) {
		kv := newMemKV()
		enc := base64.StdEncoding.EncodeToString(testKey(9))
		key, err := MasterKey(ctx, kv, enc, "ignored")
		require.NoError(t, err)
		assert.Equal(t, testKey(9), key)
		assert.Empty(t, kv.data)
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := MasterKey(ctx, newMemKV(), base64.StdEncoding.EncodeToString([]byte("short")), "")
		assert.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("passphrase salt persisted", func(t *testing.T) {
		kv := newMemKV()
		k1, err := MasterKey(ctx, kv, "", "correct horse")
		require.NoError(t, err)
		require.Len(t, kv.data[saltKey], 16)

		k2, err := MasterKey(ctx, kv, "", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, k1, k2)
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := MasterKey(ctx, newMemKV(), "", "")
		assert.ErrorIs(t, err, ErrNoMasterKey)
	})
}

func TestOpenKeyset_CreatesThenReuses(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	a1, err := OpenKeyset(ctx, kv, "keyset", XChaCha20Poly1305, testKey(5), "biblomnemon")
	require.NoError(t, err)
	require.NotNil(t, kv.data["keyset"])
	assert.NotContains(t, string(kv.data["keyset"]), "XCHACHA")

	ct, err := a1.Encrypt("payload", "")
	require.NoError(t, err)

	// template argument is ignored once the keyset exists
	a2, err := OpenKeyset(ctx, kv, "keyset", AES256GCM, testKey(5), "biblomnemon")
	require.NoError(t, err)
	assert.Equal(t, XChaCha20Poly1305, a2.Template())

	pt, err := a2.Decrypt(ct, "")
	require.NoError(t, err)
	assert.Equal(t, "payload", pt)
}

func TestOpenKeyset_WrongMasterKey(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()

	_, err := OpenKeyset(ctx, kv, "keyset", AES256GCM, testKey(5), "")
	require.NoError(t, err)

	_, err = OpenKeyset(ctx, kv, "keyset", AES256GCM, testKey(6), "")
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestOpenKeyset_StorageError(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("disk full")

	_, err := OpenKeyset(context.Background(), kv, "keyset", AES256GCM, testKey(5), "")
	assert.ErrorContains(t, err, "disk full")
}
