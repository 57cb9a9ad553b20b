//go:build integration
// +build integration

package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/testing/helpers"
	"github.com/stretchr/testify/require"
)

func TestRedis(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("DIDAUTH_REDIS_ADDR"))
	if addr == "" {
		t.Skip("DIDAUTH_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	c, err := NewRedis(client, WithPrefix("didauth:test:"+helpers.RandomString(8)+":"), WithTTL(time.Minute))
	require.NoError(t, err)

	doc := document.New(did.MustParse("did:example:alice"))
	doc.Metadata = &document.Metadata{VersionID: "v1"}
	stored := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, c.Put(ctx, "did:example:alice", Entry{Document: doc, StoredAt: stored}))
	require.NoError(t, c.Put(ctx, "did:example:bob", Entry{StoredAt: stored}))

	e, ok, err := c.Get(ctx, "did:example:alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, doc.ID, e.Document.ID)
	require.Equal(t, "v1", e.Document.Metadata.VersionID)
	require.True(t, stored.Equal(e.StoredAt))

	e, ok, err = c.Get(ctx, "did:example:bob")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, e.Found())

	require.NoError(t, c.Delete(ctx, "did:example:alice"))
	_, ok, err = c.Get(ctx, "did:example:alice")
	require.NoError(t, err)
	require.False(t, ok)
}
