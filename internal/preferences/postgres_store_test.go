package preferences

import (
	"context"
	"testing"
	"time"

	"biblomnemon/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_SetGetDelete(t *testing.T) {
	s := NewPostgresStore(testutil.PostgresPool(t), 5*time.Second)
	ctx := context.Background()

	v, err := s.Get(ctx, "snapshot")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.Set(ctx, "snapshot", []byte("cipher-1")))
	require.NoError(t, s.Set(ctx, "snapshot", []byte("cipher-2")))
	v, err = s.Get(ctx, "snapshot")
	require.NoError(t, err)
	assert.Equal(t, []byte("cipher-2"), v)

	binary := []byte{0x00, 0xff, 0x10}
	require.NoError(t, s.Set(ctx, "keyset_salt", binary))
	v, err = s.Get(ctx, "keyset_salt")
	require.NoError(t, err)
	assert.Equal(t, binary, v)

	require.NoError(t, s.Delete(ctx, "snapshot"))
	require.NoError(t, s.Delete(ctx, "snapshot"))
	v, err = s.Get(ctx, "snapshot")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestPostgresStore_CanceledContext(t *testing.T) {
	s := NewPostgresStore(testutil.PostgresPool(t), 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Set(ctx, "k", []byte("v")), context.Canceled)
}
