package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapcooking/backend/internal/kv"
)

func TestMemoryStorage_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.Set(ctx, "link:abc", []byte("value"), 0))

	got, err := s.Get(ctx, "link:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), got)

	_, err = s.Get(ctx, "link:missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestMemoryStorage_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	inserted, err := s.SetIfAbsent(ctx, "link:abc", []byte("first"), 0)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.SetIfAbsent(ctx, "link:abc", []byte("second"), 0)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := s.Get(ctx, "link:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestMemoryStorage_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.Set(ctx, "invoice:1", []byte("meta"), 10*time.Millisecond))

	got, err := s.Get(ctx, "invoice:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("meta"), got)

	time.Sleep(20 * time.Millisecond)

	_, err = s.Get(ctx, "invoice:1")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	// an expired key counts as absent
	inserted, err := s.SetIfAbsent(ctx, "invoice:1", []byte("fresh"), 0)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestMemoryStorage_Update(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	err := s.Update(ctx, "link:abc", func(old []byte) ([]byte, error) {
		return old, nil
	})
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, "link:abc", []byte("1"), 0))
	require.NoError(t, s.Update(ctx, "link:abc", func(old []byte) ([]byte, error) {
		return append(old, '2'), nil
	}))

	got, err := s.Get(ctx, "link:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("12"), got)
}

func TestMemoryStorage_List(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	require.NoError(t, s.Set(ctx, "link:a", []byte("a"), 0))
	require.NoError(t, s.Set(ctx, "link:b", []byte("b"), 0))
	require.NoError(t, s.Set(ctx, "invoice:1", []byte("i"), 0))

	got, err := s.List(ctx, "link:")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.List(ctx, "nip05:")
	require.NoError(t, err)
	assert.Len(t, got, 0)
}
