package nonce

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := NewMemory(10 * time.Minute)

	replayed, err := s.CheckAndRecord(ctx, "n1", now)
	require.NoError(t, err)
	require.False(t, replayed)

	replayed, err = s.CheckAndRecord(ctx, "n1", now.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, replayed)

	replayed, err = s.CheckAndRecord(ctx, "n2", now)
	require.NoError(t, err)
	require.False(t, replayed)
}

func TestMemoryEviction(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := NewMemory(10 * time.Minute)

	for _, n := range []string{"a", "b", "c"} {
		_, err := s.CheckAndRecord(ctx, n, now)
		require.NoError(t, err)
	}
	require.Equal(t, 3, s.Len())

	later := now.Add(11 * time.Minute)
	replayed, err := s.CheckAndRecord(ctx, "d", later)
	require.NoError(t, err)
	require.False(t, replayed)
	require.Equal(t, 1, s.Len())

	// an evicted nonce is accepted again
	replayed, err = s.CheckAndRecord(ctx, "a", later)
	require.NoError(t, err)
	require.False(t, replayed)
}

func TestMemoryNoHorizon(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	s := NewMemory(0)

	_, err := s.CheckAndRecord(ctx, "a", now)
	require.NoError(t, err)
	replayed, err := s.CheckAndRecord(ctx, "a", now.Add(24*365*time.Hour))
	require.NoError(t, err)
	require.True(t, replayed)
}

func TestMemoryConcurrentReplay(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemory(time.Minute)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			replayed, err := s.CheckAndRecord(ctx, "same", now)
			require.NoError(t, err)
			if !replayed {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), accepted.Load())
}
