package cache

import (
	"context"
	"testing"
	"time"

	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemory(2, 0)
	require.NoError(t, err)

	doc := document.New(did.MustParse("did:example:alice"))
	require.NoError(t, c.Put(ctx, "did:example:alice", Entry{Document: doc, StoredAt: time.Now()}))
	require.NoError(t, c.Put(ctx, "did:example:bob", Entry{StoredAt: time.Now()}))

	e, ok, err := c.Get(ctx, "did:example:alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, e.Found())
	require.Equal(t, doc, e.Document)

	e, ok, err = c.Get(ctx, "did:example:bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, e.Found())

	t.Run("evicts least recently used", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, "did:example:carol", Entry{StoredAt: time.Now()}))
		require.Equal(t, 2, c.Len())
		_, ok, err := c.Get(ctx, "did:example:alice")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, c.Delete(ctx, "did:example:bob"))
		_, ok, err := c.Get(ctx, "did:example:bob")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemory(0, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "did:example:alice", Entry{StoredAt: time.Now()}))
	_, ok, err := c.Get(ctx, "did:example:alice")
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "did:example:alice")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
