// Package memory is an in process identity registry that accepts signed
// document mutations.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/storacha/go-didauth/capability"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/didauth"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/nonce"
	"github.com/storacha/go-didauth/resolver"
	"github.com/storacha/go-didauth/signer"
)

const DefaultMethod = "example"

var (
	ErrNotFound      = errors.New("identity not found")
	ErrAlreadyExists = errors.New("identity already exists")
	ErrWrongMethod   = errors.New("identity method not served by this backend")
	ErrNotController = errors.New("actor is not a controller of the identity")
)

// UnauthorizedError reports a mutation request that failed verification.
type UnauthorizedError struct {
	Code  didauth.ErrorCode
	Cause error
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("mutation not authorized: %s", e.Code)
}

func (e *UnauthorizedError) Unwrap() error {
	return e.Cause
}

// Backend holds documents in memory. It is safe for concurrent use.
type Backend struct {
	mu        sync.RWMutex
	method    string
	docs      map[string]*document.Document
	nonces    nonce.Store
	now       func() time.Time
	onResolve func(did.DID)
}

var _ resolver.Publisher = (*Backend)(nil)

type Option func(*Backend)

func WithMethod(method string) Option {
	return func(b *Backend) {
		b.method = method
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// WithResolveHook registers fn to be called on every Resolve.
func WithResolveHook(fn func(did.DID)) Option {
	return func(b *Backend) {
		b.onResolve = fn
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		method: DefaultMethod,
		docs:   map[string]*document.Document{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.nonces = nonce.NewMemory(2 * didauth.DefaultWindow)
	return b
}

func (b *Backend) Method() string {
	return b.method
}

func (b *Backend) Resolve(_ context.Context, id did.DID) (*document.Document, error) {
	if b.onResolve != nil {
		b.onResolve(id)
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	doc, ok := b.docs[id.WithoutFragment().String()]
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

func (b *Backend) Exists(_ context.Context, id did.DID) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.docs[id.WithoutFragment().String()]
	return ok, nil
}

// Create registers a new document.
func (b *Backend) Create(_ context.Context, doc *document.Document) error {
	if doc.ID.Method() != b.method {
		return fmt.Errorf("%w: %s", ErrWrongMethod, doc.ID)
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := doc.ID.String()
	if _, ok := b.docs[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}
	doc = doc.Clone()
	now := b.now()
	if err := b.stamp(doc, now, now); err != nil {
		return err
	}
	b.docs[key] = doc
	return nil
}

func (b *Backend) stamp(doc *document.Document, created, updated time.Time) error {
	doc.Metadata = nil
	v, err := document.VersionID(doc)
	if err != nil {
		return err
	}
	doc.Metadata = &document.Metadata{Created: created, Updated: updated, VersionID: v}
	return nil
}

func (b *Backend) AddVerificationMethod(ctx context.Context, id did.DID, vm document.VerificationMethod, rels []document.Relationship, actor signer.Signer, keyID string) error {
	params := map[string]any{"id": id.String(), "method": vm, "relationships": rels}
	return b.mutate(ctx, id, capability.AddVerificationMethod, params, actor, keyID, func(doc *document.Document) error {
		return doc.AddMethod(vm, rels...)
	})
}

func (b *Backend) RemoveVerificationMethod(ctx context.Context, id did.DID, vmID string, actor signer.Signer, keyID string) error {
	params := map[string]any{"id": id.String(), "methodId": vmID}
	return b.mutate(ctx, id, capability.RemoveVerificationMethod, params, actor, keyID, func(doc *document.Document) error {
		return doc.RemoveMethod(vmID)
	})
}

func (b *Backend) AddService(ctx context.Context, id did.DID, svc document.Service, actor signer.Signer, keyID string) error {
	params := map[string]any{"id": id.String(), "service": svc}
	return b.mutate(ctx, id, capability.AddService, params, actor, keyID, func(doc *document.Document) error {
		return doc.AddService(svc)
	})
}

func (b *Backend) RemoveService(ctx context.Context, id did.DID, serviceID string, actor signer.Signer, keyID string) error {
	params := map[string]any{"id": id.String(), "serviceId": serviceID}
	return b.mutate(ctx, id, capability.RemoveService, params, actor, keyID, func(doc *document.Document) error {
		return doc.RemoveService(serviceID)
	})
}

func (b *Backend) UpdateRelationships(ctx context.Context, id did.DID, rel document.Relationship, refs []document.Reference, actor signer.Signer, keyID string) error {
	params := map[string]any{"id": id.String(), "relationship": rel, "references": refs}
	return b.mutate(ctx, id, capability.UpdateRelationships, params, actor, keyID, func(doc *document.Document) error {
		return doc.SetRelationship(rel, slices.Clone(refs))
	})
}

func (b *Backend) UpdateController(ctx context.Context, id did.DID, controllers []string, actor signer.Signer, keyID string) error {
	params := map[string]any{"id": id.String(), "controllers": controllers}
	return b.mutate(ctx, id, capability.UpdateController, params, actor, keyID, func(doc *document.Document) error {
		for _, c := range controllers {
			if _, err := did.Parse(c); err != nil {
				return fmt.Errorf("invalid controller: %w", err)
			}
		}
		doc.Controller = slices.Clone(controllers)
		return nil
	})
}

func (b *Backend) mutate(ctx context.Context, id did.DID, action capability.Action, params map[string]any, actor signer.Signer, keyID string, apply func(*document.Document) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := id.WithoutFragment().String()
	current, ok := b.docs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err := b.authorize(ctx, current, action, params, actor, keyID); err != nil {
		return err
	}

	next := current.Clone()
	if err := apply(next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if err := b.stamp(next, current.Metadata.Created, b.now()); err != nil {
		return err
	}
	b.docs[key] = next
	return nil
}

// authorize has the actor sign the mutation request and verifies it against
// the actor's own document, requiring the relationship the action needs. The
// actor must be a controller of the target document.
func (b *Backend) authorize(ctx context.Context, target *document.Document, action capability.Action, params map[string]any, actor signer.Signer, keyID string) error {
	owner := actor.Owner().String()
	if !slices.Contains(target.Controllers(), owner) {
		return fmt.Errorf("%w: %s", ErrNotController, owner)
	}

	controllers := resolver.NewStatic(target)
	if owner != target.ID.String() {
		doc, ok := b.docs[owner]
		if !ok {
			return fmt.Errorf("%w: controller %s", ErrNotFound, owner)
		}
		controllers.Put(doc)
	}

	obj, err := didauth.CreateSignature(string(action), params, actor, keyID, didauth.WithTimestamp(b.now()))
	if err != nil {
		return err
	}
	v, err := didauth.NewVerifier(controllers,
		didauth.WithRelationship(capability.RequiredFor(action)),
		didauth.WithNonceStore(b.nonces),
		didauth.WithClock(b.now),
	)
	if err != nil {
		return err
	}
	res, err := v.VerifySignature(ctx, obj)
	if err != nil {
		return err
	}
	if res.OK {
		return nil
	}
	if res.Code == didauth.InsufficientCapability {
		return &capability.PermissionError{Action: action, KeyID: res.KeyID, Required: capability.RequiredFor(action)}
	}
	return &UnauthorizedError{Code: res.Code, Cause: res.Cause}
}
