// Package resolver maps identities to their current documents. Backends are
// registered per method tag and their answers, including "not found", are
// cached until a caller forces a refresh.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/failure"
	"github.com/storacha/go-didauth/resolver/cache"
	"golang.org/x/sync/singleflight"
)

var log = logging.Logger("resolver")

const NoBackendForMethodName = "NoBackendForMethod"

var (
	ErrNoBackendForMethod = failure.Sentinel(NoBackendForMethodName)
	ErrResolutionTimeout  = errors.New("identity resolution timed out")
	ErrDuplicateBackend   = errors.New("backend already registered for method")
)

func NewNoBackendForMethodError(method string) error {
	return failure.New(NoBackendForMethodName, fmt.Sprintf("no backend registered for method: %q", method))
}

type Entry = cache.Entry

// Registry dispatches resolution to backends by method tag and caches the
// results. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	cache    cache.Cache
	timeout  time.Duration
	now      func() time.Time
	flight   singleflight.Group
}

var _ Resolver = (*Registry)(nil)

func NewRegistry(opts ...Option) (*Registry, error) {
	cfg := registryConfig{timeout: DefaultTimeout, now: time.Now}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.cache == nil {
		c, err := cache.NewMemory(cache.MemoryCacheSize, 0)
		if err != nil {
			return nil, err
		}
		cfg.cache = c
	}
	r := &Registry{
		backends: map[string]Backend{},
		cache:    cfg.cache,
		timeout:  cfg.timeout,
		now:      cfg.now,
	}
	for _, b := range cfg.backends {
		if err := r.Register(b); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a backend for its method tag.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := b.Method()
	if _, ok := r.backends[m]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateBackend, m)
	}
	r.backends[m] = b
	return nil
}

// Backend returns the backend registered for method.
func (r *Registry) Backend(method string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[method]
	return b, ok
}

// Methods lists the registered method tags in sorted order.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods := make([]string, 0, len(r.backends))
	for m := range r.backends {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return methods
}

func (r *Registry) backendFor(id did.DID) (Backend, error) {
	b, ok := r.Backend(id.Method())
	if !ok {
		return nil, NewNoBackendForMethodError(id.Method())
	}
	return b, nil
}

// Resolve returns the document for id, or nil if the identity does not exist.
// Cached answers are returned without I/O unless [WithForceRefresh] is given.
// Backend failures and timeouts are returned as errors and are not cached.
func (r *Registry) Resolve(ctx context.Context, id did.DID, opts ...ResolveOption) (*document.Document, error) {
	cfg := newResolveConfig(opts)
	key := id.WithoutFragment().String()

	if !cfg.forceRefresh {
		entry, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warnw("reading resolution cache", "did", key, "error", err)
		} else if ok {
			log.Debugw("cache hit", "did", key, "found", entry.Found())
			return entry.Document, nil
		}
	}

	b, err := r.backendFor(id)
	if err != nil {
		return nil, err
	}

	flightKey := key
	if cfg.forceRefresh {
		flightKey = "refresh:" + key
	}
	ch := r.flight.DoChan(flightKey, func() (any, error) {
		return r.fetch(ctx, b, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		doc, _ := res.Val.(*document.Document)
		return doc, nil
	}
}

func (r *Registry) fetch(ctx context.Context, b Backend, key string) (*document.Document, error) {
	// the flight is shared, so one caller giving up must not cancel the others
	ctx, release := detach(ctx)
	defer release()
	ctx, cancel := r.bound(ctx)
	defer cancel()

	id, err := did.Parse(key)
	if err != nil {
		return nil, err
	}
	log.Debugw("resolving", "did", key, "method", b.Method())
	doc, err := b.Resolve(ctx, id)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrResolutionTimeout, key, err)
		}
		log.Warnw("backend resolution failed", "did", key, "method", b.Method(), "error", err)
		return nil, fmt.Errorf("resolving %s: %w", key, err)
	}
	if err := r.cache.Put(ctx, key, Entry{Document: doc, StoredAt: r.now()}); err != nil {
		log.Warnw("writing resolution cache", "did", key, "error", err)
	}
	return doc, nil
}

// detach drops the cancellation of ctx but keeps its deadline.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if dl, ok := ctx.Deadline(); ok {
		return context.WithDeadline(detached, dl)
	}
	return detached, func() {}
}

func (r *Registry) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Exists reports whether the identity exists. A cached document answers
// immediately; otherwise the backend is asked and the cache is left alone.
func (r *Registry) Exists(ctx context.Context, id did.DID) (bool, error) {
	key := id.WithoutFragment().String()
	entry, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		log.Warnw("reading resolution cache", "did", key, "error", err)
	} else if ok && entry.Found() {
		return true, nil
	}

	b, err := r.backendFor(id)
	if err != nil {
		return false, err
	}
	bctx, cancel := r.bound(ctx)
	defer cancel()
	exists, err := b.Exists(bctx, id.WithoutFragment())
	if err != nil {
		if errors.Is(bctx.Err(), context.DeadlineExceeded) {
			return false, fmt.Errorf("%w: %s: %w", ErrResolutionTimeout, key, err)
		}
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return exists, nil
}

// Invalidate drops any cached entry for id.
func (r *Registry) Invalidate(ctx context.Context, id did.DID) error {
	return r.cache.Delete(ctx, id.WithoutFragment().String())
}

// Cached returns the cache entry for id, if any, without consulting a
// backend.
func (r *Registry) Cached(ctx context.Context, id did.DID) (Entry, bool, error) {
	return r.cache.Get(ctx, id.WithoutFragment().String())
}
