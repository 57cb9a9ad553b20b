package didauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/go-didauth/canonical"
	"github.com/storacha/go-didauth/capability"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/multiformat"
	"github.com/storacha/go-didauth/nonce"
	"github.com/storacha/go-didauth/principal/factory"
	"github.com/storacha/go-didauth/resolver"
)

var log = logging.Logger("didauth")

// DefaultWindow is how far a signature timestamp may be from the verifier's
// clock, in either direction.
const DefaultWindow = 300 * time.Second

type verifierConfig struct {
	window       time.Duration
	nonces       nonce.Store
	now          func() time.Time
	relationship capability.Relationship
	factory      *factory.Factory
	logger       *logging.ZapEventLogger
}

// Option is an option configuring a verifier.
type Option func(cfg *verifierConfig) error

// WithWindow sets the accepted clock skew. Defaults to [DefaultWindow].
func WithWindow(d time.Duration) Option {
	return func(cfg *verifierConfig) error {
		if d <= 0 {
			return errors.New("window must be positive")
		}
		cfg.window = d
		return nil
	}
}

// WithNonceStore sets where nonces are recorded. Defaults to an in memory
// store that remembers nonces for twice the window.
func WithNonceStore(s nonce.Store) Option {
	return func(cfg *verifierConfig) error {
		if s == nil {
			return errors.New("nonce store is nil")
		}
		cfg.nonces = s
		return nil
	}
}

// WithClock sets the source of the current time used for the timestamp window.
func WithClock(now func() time.Time) Option {
	return func(cfg *verifierConfig) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		cfg.now = now
		return nil
	}
}

// WithRelationship sets the relationship the signing key must hold. Defaults
// to authentication. An empty relationship disables the check.
func WithRelationship(rel capability.Relationship) Option {
	return func(cfg *verifierConfig) error {
		cfg.relationship = rel
		return nil
	}
}

// WithFactory sets the crypto providers used to verify signatures.
func WithFactory(f *factory.Factory) Option {
	return func(cfg *verifierConfig) error {
		if f == nil {
			return errors.New("factory is nil")
		}
		cfg.factory = f
		return nil
	}
}

// WithLogger sets the logger verification outcomes are reported to.
func WithLogger(l *logging.ZapEventLogger) Option {
	return func(cfg *verifierConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l
		return nil
	}
}

// Verifier checks signed requests. It is safe for concurrent use; all
// verifications share one nonce store.
type Verifier struct {
	resolver     resolver.Resolver
	window       time.Duration
	nonces       nonce.Store
	now          func() time.Time
	relationship capability.Relationship
	factory      *factory.Factory
	log          *logging.ZapEventLogger
}

// NewVerifier creates a verifier resolving signers through r. Without
// [WithNonceStore] it remembers nonces in memory for twice the timestamp window.
func NewVerifier(r resolver.Resolver, opts ...Option) (*Verifier, error) {
	if r == nil {
		return nil, errors.New("resolver is nil")
	}
	cfg := verifierConfig{
		window:       DefaultWindow,
		now:          time.Now,
		relationship: capability.Authentication,
		factory:      factory.Default(),
		logger:       log,
	}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.nonces == nil {
		cfg.nonces = nonce.NewMemory(2 * cfg.window)
	}
	return &Verifier{
		resolver:     r,
		window:       cfg.window,
		nonces:       cfg.nonces,
		now:          cfg.now,
		relationship: cfg.relationship,
		factory:      cfg.factory,
		log:          cfg.logger,
	}, nil
}

// VerifyAuthHeader verifies an Authorization header value. Verification
// failures are reported in the result; the error is reserved for
// infrastructure failures such as an unregistered identity method or an
// unavailable nonce store.
func (v *Verifier) VerifyAuthHeader(ctx context.Context, header string) (Result, error) {
	return v.verifyHeader(ctx, header, v.relationship, false)
}

// VerifyForAction verifies a header and requires the signing key to hold the
// relationship action needs.
func (v *Verifier) VerifyForAction(ctx context.Context, header string, action capability.Action) (Result, error) {
	return v.verifyHeader(ctx, header, capability.RequiredFor(action), false)
}

// VerifyAuthHeaderWithRefresh verifies a header against the cached document
// and, if the signer or key do not match it, verifies once more against a
// freshly resolved document. The nonce is recorded once.
func (v *Verifier) VerifyAuthHeaderWithRefresh(ctx context.Context, header string) (Result, error) {
	return v.verifyHeader(ctx, header, v.relationship, true)
}

// VerifySignature verifies a decoded signed object.
func (v *Verifier) VerifySignature(ctx context.Context, obj *SignedObject) (Result, error) {
	return v.VerifySignatureFor(ctx, obj, v.relationship)
}

// VerifySignatureFor verifies a decoded signed object and requires the
// signing key to hold rel. An empty rel skips the capability check.
func (v *Verifier) VerifySignatureFor(ctx context.Context, obj *SignedObject, rel capability.Relationship) (Result, error) {
	if obj == nil {
		return v.report(fail(InvalidJSON, nil, errors.New("signed object is nil"))), nil
	}
	p := &parsed{obj: obj}
	if err := checkSignature(obj.Signature); err != nil {
		return v.report(fail(MissingSignature, obj, err)), nil
	}
	return v.verifyParsed(ctx, p, rel, false)
}

func (v *Verifier) verifyHeader(ctx context.Context, header string, rel capability.Relationship, refresh bool) (Result, error) {
	p, res := parseHeader(header)
	if !res.OK {
		return v.report(res), nil
	}
	return v.verifyParsed(ctx, p, rel, refresh)
}

func (v *Verifier) verifyParsed(ctx context.Context, p *parsed, rel capability.Relationship, refresh bool) (Result, error) {
	obj := p.obj
	now := v.now()
	ts := time.Unix(obj.SignedData.Timestamp, 0)
	if skew := now.Sub(ts); skew > v.window || skew < -v.window {
		return v.report(fail(TimestampOutOfWindow, obj, fmt.Errorf("timestamp is %s from now", skew))), nil
	}

	replayed, err := v.nonces.CheckAndRecord(ctx, obj.SignedData.Nonce, now)
	if err != nil {
		return fail("", obj, err), fmt.Errorf("checking nonce: %w", err)
	}
	if replayed {
		return v.report(fail(NonceReplayed, obj, nil)), nil
	}

	res, err := v.authenticate(ctx, p, rel)
	if err != nil || res.OK || !refresh {
		return v.report(res), err
	}
	if res.Code != DIDMismatch && res.Code != VerificationMethodNotFound {
		return v.report(res), nil
	}
	v.log.Debugw("retrying with refreshed document", "code", res.Code, "signer", res.SignerDID)
	res, err = v.authenticate(ctx, p, rel, resolver.WithForceRefresh())
	return v.report(res), err
}

// authenticate resolves the signer and checks the signature and the
// capability of the key.
func (v *Verifier) authenticate(ctx context.Context, p *parsed, rel capability.Relationship, opts ...resolver.ResolveOption) (Result, error) {
	obj := p.obj
	sig := obj.Signature
	signerDID, err := did.Parse(sig.SignerDID)
	if err != nil {
		return fail(MissingSignature, obj, err), nil
	}

	doc, err := v.resolver.Resolve(ctx, signerDID, opts...)
	if err != nil {
		if errors.Is(err, resolver.ErrNoBackendForMethod) {
			return fail("", obj, err), err
		}
		v.log.Warnw("resolving signer", "signer", sig.SignerDID, "error", err)
		return fail(DIDDocumentNotFound, obj, err), nil
	}
	if doc == nil {
		return fail(DIDDocumentNotFound, obj, nil), nil
	}
	if doc.ID.String() != signerDID.String() {
		res := fail(DIDMismatch, obj, fmt.Errorf("resolved document %s", doc.ID))
		res.Document = doc
		return res, nil
	}

	keyID := did.ResolveRef(signerDID, sig.KeyID)
	vm, ok := doc.FindMethod(keyID)
	if !ok {
		res := fail(VerificationMethodNotFound, obj, nil)
		res.Document = doc
		return res, nil
	}

	failed := func(code ErrorCode, cause error) Result {
		res := fail(code, obj, cause)
		res.Document = doc
		return res
	}

	// The key must verify as the relationship lists it.
	authorized := true
	if rel != "" {
		if m, ok := capability.AuthorizedMethod(doc, keyID, rel); ok {
			vm = m
		} else {
			authorized = false
		}
	}

	alg, pub, err := vm.PublicKey()
	if err != nil {
		return failed(InvalidPublicKey, err), nil
	}
	provider, err := v.factory.Lookup(alg)
	if err != nil {
		return failed(InvalidPublicKey, err), nil
	}

	msg, err := v.signedBytes(p)
	if err != nil {
		return failed(SignatureVerificationFailed, err), nil
	}
	value, _, err := multiformat.DecodeBytes(sig.Value)
	if err != nil {
		return failed(SignatureVerificationFailed, err), nil
	}
	if !provider.Verify(msg, value, pub) {
		return failed(SignatureVerificationFailed, nil), nil
	}

	if !authorized {
		return failed(InsufficientCapability, fmt.Errorf("key %s is not listed under %s", keyID, rel)), nil
	}

	return Result{
		OK:        true,
		SignerDID: signerDID.String(),
		KeyID:     keyID,
		Object:    obj,
		Document:  doc,
	}, nil
}

func (v *Verifier) signedBytes(p *parsed) ([]byte, error) {
	if p.raw != nil {
		return canonical.Transform(p.raw)
	}
	return p.obj.SignedData.CanonicalBytes()
}

func (v *Verifier) report(res Result) Result {
	if !res.OK && res.Code != "" {
		v.log.Debugw("verification failed", "code", res.Code, "signer", res.SignerDID, "key", res.KeyID)
	}
	return res
}

// VerifyAuthHeader verifies header against r with a verifier of its own.
// Nonces are only remembered for the duration of the call, so long lived
// callers should create a [Verifier] instead.
func VerifyAuthHeader(ctx context.Context, header string, r resolver.Resolver) (Result, error) {
	v, err := NewVerifier(r)
	if err != nil {
		return Result{}, err
	}
	return v.VerifyAuthHeader(ctx, header)
}

