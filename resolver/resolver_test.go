package resolver

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	method   string
	mu       sync.Mutex
	docs     map[string]*document.Document
	resolves atomic.Int32
	exists   atomic.Int32
	block    chan struct{}
	err      error
}

func newFakeBackend(method string, docs ...*document.Document) *fakeBackend {
	b := &fakeBackend{method: method, docs: map[string]*document.Document{}}
	for _, d := range docs {
		b.put(d)
	}
	return b
}

func (b *fakeBackend) put(doc *document.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[doc.ID.String()] = doc
}

func (b *fakeBackend) Method() string {
	return b.method
}

func (b *fakeBackend) Resolve(ctx context.Context, id did.DID) (*document.Document, error) {
	b.resolves.Add(1)
	if b.block != nil {
		select {
		case <-b.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docs[id.String()], nil
}

func (b *fakeBackend) Exists(_ context.Context, id did.DID) (bool, error) {
	b.exists.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.docs[id.String()]
	return ok, nil
}

var (
	alice = did.MustParse("did:example:alice")
	bob   = did.MustParse("did:example:bob")
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend("example", document.New(alice))
	r, err := NewRegistry(WithBackend(backend))
	require.NoError(t, err)

	t.Run("found is cached", func(t *testing.T) {
		doc, err := r.Resolve(ctx, alice.WithFragment("key-1"))
		require.NoError(t, err)
		require.NotNil(t, doc)
		require.Equal(t, alice, doc.ID)

		_, err = r.Resolve(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, int32(1), backend.resolves.Load())
	})

	t.Run("not found is cached", func(t *testing.T) {
		before := backend.resolves.Load()
		for range 3 {
			doc, err := r.Resolve(ctx, bob)
			require.NoError(t, err)
			require.Nil(t, doc)
		}
		require.Equal(t, before+1, backend.resolves.Load())

		entry, ok, err := r.Cached(ctx, bob)
		require.NoError(t, err)
		require.True(t, ok)
		require.False(t, entry.Found())
	})

	t.Run("force refresh replaces negative entry", func(t *testing.T) {
		backend.put(document.New(bob))
		doc, err := r.Resolve(ctx, bob)
		require.NoError(t, err)
		require.Nil(t, doc)

		doc, err = r.Resolve(ctx, bob, WithForceRefresh())
		require.NoError(t, err)
		require.NotNil(t, doc)

		doc, err = r.Resolve(ctx, bob)
		require.NoError(t, err)
		require.NotNil(t, doc)
	})

	t.Run("invalidate", func(t *testing.T) {
		before := backend.resolves.Load()
		require.NoError(t, r.Invalidate(ctx, alice))
		_, err := r.Resolve(ctx, alice)
		require.NoError(t, err)
		require.Equal(t, before+1, backend.resolves.Load())
	})
}

func TestNoBackendForMethod(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	_, err = r.Resolve(context.Background(), did.MustParse("did:nope:x"))
	require.ErrorIs(t, err, ErrNoBackendForMethod)
	_, err = r.Exists(context.Background(), did.MustParse("did:nope:x"))
	require.ErrorIs(t, err, ErrNoBackendForMethod)
}

func TestRegister(t *testing.T) {
	r, err := NewRegistry(WithBackend(newFakeBackend("a")), WithBackend(newFakeBackend("b")))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, r.Methods())

	err = r.Register(newFakeBackend("a"))
	require.ErrorIs(t, err, ErrDuplicateBackend)

	_, err = NewRegistry(WithBackend(newFakeBackend("a")), WithBackend(newFakeBackend("a")))
	require.ErrorIs(t, err, ErrDuplicateBackend)
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend("example", document.New(alice))
	r, err := NewRegistry(WithBackend(backend))
	require.NoError(t, err)

	ok, err := r.Exists(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), backend.exists.Load())

	// existence checks do not populate the cache
	_, cached, err := r.Cached(ctx, alice)
	require.NoError(t, err)
	require.False(t, cached)

	_, err = r.Resolve(ctx, alice)
	require.NoError(t, err)
	ok, err = r.Exists(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(1), backend.exists.Load())

	// a cached negative entry is not trusted
	_, err = r.Resolve(ctx, bob)
	require.NoError(t, err)
	ok, err = r.Exists(ctx, bob)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int32(2), backend.exists.Load())
}

func TestTimeout(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend("example", document.New(alice))
	backend.block = make(chan struct{})
	r, err := NewRegistry(WithBackend(backend), WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = r.Resolve(ctx, alice)
	require.ErrorIs(t, err, ErrResolutionTimeout)

	_, cached, err := r.Cached(ctx, alice)
	require.NoError(t, err)
	require.False(t, cached)

	close(backend.block)
	doc, err := r.Resolve(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, doc)
}

func TestBackendError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	backend := newFakeBackend("example")
	backend.err = boom
	r, err := NewRegistry(WithBackend(backend))
	require.NoError(t, err)

	_, err = r.Resolve(ctx, alice)
	require.ErrorIs(t, err, boom)
	_, cached, err := r.Cached(ctx, alice)
	require.NoError(t, err)
	require.False(t, cached)
}

func TestConcurrentMissesCoalesce(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend("example", document.New(alice))
	backend.block = make(chan struct{})
	r, err := NewRegistry(WithBackend(backend))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := r.Resolve(ctx, alice)
			require.NoError(t, err)
			require.NotNil(t, doc)
		}()
	}
	require.Eventually(t, func() bool { return backend.resolves.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	close(backend.block)
	wg.Wait()
	require.Equal(t, int32(1), backend.resolves.Load())
}

func TestCallerCancellation(t *testing.T) {
	backend := newFakeBackend("example", document.New(alice))
	backend.block = make(chan struct{})
	defer close(backend.block)
	r, err := NewRegistry(WithBackend(backend), WithTimeout(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Resolve(ctx, alice)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnboundedRegistryKeepsCallerDeadline(t *testing.T) {
	backend := newFakeBackend("example", document.New(alice))
	backend.block = make(chan struct{})
	defer close(backend.block)
	r, err := NewRegistry(WithBackend(backend), WithTimeout(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Resolve(ctx, alice)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned backend call ends with the deadline, so later callers
	// start a fresh one instead of joining it
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		defer cancel()
		_, _ = r.Resolve(ctx, alice)
		return backend.resolves.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestStatic(t *testing.T) {
	s := NewStatic(document.New(alice))
	doc, err := s.Resolve(context.Background(), alice.WithFragment("k"), WithForceRefresh())
	require.NoError(t, err)
	require.NotNil(t, doc)

	s.Remove(alice)
	doc, err = s.Resolve(context.Background(), alice)
	require.NoError(t, err)
	require.Nil(t, doc)
}
