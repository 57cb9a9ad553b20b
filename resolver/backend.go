package resolver

import (
	"context"

	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/signer"
)

// Backend resolves identities of a single method, such as "key" or "web".
type Backend interface {
	// Method is the method tag this backend serves.
	Method() string
	// Resolve returns the current document for id. A nil document with a nil
	// error means the identity does not exist.
	Resolve(ctx context.Context, id did.DID) (*document.Document, error)
	Exists(ctx context.Context, id did.DID) (bool, error)
}

// Publisher is a backend that also accepts document mutations. Every
// mutation is signed by actor with keyID and authorized against the current
// document using the relationship the action requires.
type Publisher interface {
	Backend
	Create(ctx context.Context, doc *document.Document) error
	AddVerificationMethod(ctx context.Context, id did.DID, vm document.VerificationMethod, rels []document.Relationship, actor signer.Signer, keyID string) error
	RemoveVerificationMethod(ctx context.Context, id did.DID, vmID string, actor signer.Signer, keyID string) error
	AddService(ctx context.Context, id did.DID, svc document.Service, actor signer.Signer, keyID string) error
	RemoveService(ctx context.Context, id did.DID, serviceID string, actor signer.Signer, keyID string) error
	UpdateRelationships(ctx context.Context, id did.DID, rel document.Relationship, refs []document.Reference, actor signer.Signer, keyID string) error
	UpdateController(ctx context.Context, id did.DID, controllers []string, actor signer.Signer, keyID string) error
}

// Resolver is implemented by [Registry] and [Static].
type Resolver interface {
	Resolve(ctx context.Context, id did.DID, opts ...ResolveOption) (*document.Document, error)
}

type resolveConfig struct {
	forceRefresh bool
}

type ResolveOption func(*resolveConfig)

// WithForceRefresh bypasses any cached entry and replaces it with the
// backend's current answer.
func WithForceRefresh() ResolveOption {
	return func(cfg *resolveConfig) {
		cfg.forceRefresh = true
	}
}

func newResolveConfig(opts []ResolveOption) resolveConfig {
	var cfg resolveConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
