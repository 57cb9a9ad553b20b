// Package signer provides key custody behind a narrow interface: callers ask
// for a signature by key id and never see private key bytes.
package signer

import (
	"crypto/ed25519"
	"fmt"
	"slices"
	"sync"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/failure"
	"github.com/storacha/go-didauth/multiformat"
	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/principal/factory"
	"github.com/storacha/go-didauth/principal/jwk"
)

const (
	KeyNotFoundName       = "KeyNotFound"
	NoPrivateMaterialName = "NoPrivateMaterial"
)

var (
	ErrKeyNotFound       = failure.Sentinel(KeyNotFoundName)
	ErrNoPrivateMaterial = failure.Sentinel(NoPrivateMaterialName)
)

func NewKeyNotFoundError(id string) error {
	return failure.New(KeyNotFoundName, fmt.Sprintf("key not found: %s", id))
}

func NewNoPrivateMaterialError(id string) error {
	return failure.New(NoPrivateMaterialName, fmt.Sprintf("no private key material for: %s", id))
}

type KeyInfo struct {
	Algorithm principal.Algorithm
	PublicKey []byte
}

// Signer produces signatures on behalf of an identity.
type Signer interface {
	// Owner is the identity the keys belong to.
	Owner() did.DID
	ListKeyIDs() []string
	CanSignWithKeyID(id string) bool
	// SignWithKeyID signs data with the identified key. It fails with
	// KeyNotFound for unknown ids and NoPrivateMaterial for keys that are
	// known but cannot sign.
	SignWithKeyID(data []byte, id string) ([]byte, error)
	KeyInfo(id string) (KeyInfo, bool)
}

type key struct {
	info     KeyInfo
	priv     []byte
	provider principal.Provider
}

// Keyring holds key pairs in memory.
type Keyring struct {
	mu      sync.RWMutex
	owner   did.DID
	factory *factory.Factory
	keys    map[string]key
	order   []string
}

var _ Signer = (*Keyring)(nil)

type Option func(*Keyring)

// WithFactory sets the providers used to sign. Defaults to [factory.Default].
func WithFactory(f *factory.Factory) Option {
	return func(k *Keyring) {
		k.factory = f
	}
}

func NewKeyring(owner did.DID, opts ...Option) *Keyring {
	k := &Keyring{
		owner:   owner.WithoutFragment(),
		factory: factory.Default(),
		keys:    map[string]key{},
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *Keyring) Owner() did.DID {
	return k.owner
}

// Add stores a private key. The public key is derived from it.
func (k *Keyring) Add(id string, alg principal.Algorithm, priv []byte) (KeyInfo, error) {
	p, err := k.factory.Lookup(alg)
	if err != nil {
		return KeyInfo{}, err
	}
	pub, err := p.DerivePublicKey(priv)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("deriving public key: %w", err)
	}
	info := KeyInfo{Algorithm: alg, PublicKey: pub}
	k.put(id, key{info: info, priv: slices.Clone(priv), provider: p})
	return info, nil
}

// Import adds a multibase encoded private key tagged with its multicodec.
// Ed25519 keys may carry the tagged public key after the seed.
func (k *Keyring) Import(id string, encoded string) (KeyInfo, error) {
	b, code, err := multiformat.Decode(encoded)
	if err != nil {
		return KeyInfo{}, fmt.Errorf("decoding private key: %w", err)
	}
	p, err := k.factory.ForPrivateCode(code)
	if err != nil {
		return KeyInfo{}, err
	}
	if code == multicodec.Ed25519Priv && len(b) > ed25519.SeedSize {
		b = b[:ed25519.SeedSize]
	}
	return k.Add(id, p.Algorithm(), b)
}

// AddPublic records a key the keyring knows about but cannot sign with.
func (k *Keyring) AddPublic(id string, alg principal.Algorithm, pub []byte) (KeyInfo, error) {
	p, err := k.factory.Lookup(alg)
	if err != nil {
		return KeyInfo{}, err
	}
	info := KeyInfo{Algorithm: alg, PublicKey: slices.Clone(pub)}
	k.put(id, key{info: info, provider: p})
	return info, nil
}

// Generate creates and stores a new key pair.
func (k *Keyring) Generate(id string, alg principal.Algorithm) (KeyInfo, error) {
	p, err := k.factory.Lookup(alg)
	if err != nil {
		return KeyInfo{}, err
	}
	pub, priv, err := p.GenerateKeyPair()
	if err != nil {
		return KeyInfo{}, fmt.Errorf("generating %s key pair: %w", alg, err)
	}
	info := KeyInfo{Algorithm: alg, PublicKey: pub}
	k.put(id, key{info: info, priv: priv, provider: p})
	return info, nil
}

func (k *Keyring) put(id string, entry key) {
	id = did.ResolveRef(k.owner, id)
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.keys[id]; !ok {
		k.order = append(k.order, id)
	}
	k.keys[id] = entry
}

func (k *Keyring) get(id string) (key, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	entry, ok := k.keys[did.ResolveRef(k.owner, id)]
	return entry, ok
}

func (k *Keyring) ListKeyIDs() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return slices.Clone(k.order)
}

func (k *Keyring) CanSignWithKeyID(id string) bool {
	entry, ok := k.get(id)
	return ok && entry.priv != nil
}

func (k *Keyring) SignWithKeyID(data []byte, id string) ([]byte, error) {
	entry, ok := k.get(id)
	if !ok {
		return nil, NewKeyNotFoundError(id)
	}
	if entry.priv == nil {
		return nil, NewNoPrivateMaterialError(id)
	}
	return entry.provider.Sign(data, entry.priv)
}

func (k *Keyring) KeyInfo(id string) (KeyInfo, bool) {
	entry, ok := k.get(id)
	if !ok {
		return KeyInfo{}, false
	}
	return KeyInfo{Algorithm: entry.info.Algorithm, PublicKey: slices.Clone(entry.info.PublicKey)}, true
}

// delegated restricts a signer to a single key.
type delegated struct {
	wrapped Signer
	keyID   string
}

// Delegate returns a signer exposing only keyID of wrapped. Requests for any
// other key fail with KeyNotFound.
func Delegate(wrapped Signer, keyID string) Signer {
	return delegated{wrapped: wrapped, keyID: did.ResolveRef(wrapped.Owner(), keyID)}
}

func (d delegated) allowed(id string) bool {
	return did.ResolveRef(d.wrapped.Owner(), id) == d.keyID
}

func (d delegated) Owner() did.DID {
	return d.wrapped.Owner()
}

func (d delegated) ListKeyIDs() []string {
	if _, ok := d.wrapped.KeyInfo(d.keyID); !ok {
		return nil
	}
	return []string{d.keyID}
}

func (d delegated) CanSignWithKeyID(id string) bool {
	return d.allowed(id) && d.wrapped.CanSignWithKeyID(id)
}

func (d delegated) SignWithKeyID(data []byte, id string) ([]byte, error) {
	if !d.allowed(id) {
		return nil, NewKeyNotFoundError(id)
	}
	return d.wrapped.SignWithKeyID(data, id)
}

func (d delegated) KeyInfo(id string) (KeyInfo, bool) {
	if !d.allowed(id) {
		return KeyInfo{}, false
	}
	return d.wrapped.KeyInfo(id)
}

// VerificationMethod builds the document entry publishing the public half of
// key id. An empty vmType picks the type registered for the key algorithm.
func VerificationMethod(s Signer, id string, vmType string) (document.VerificationMethod, error) {
	info, ok := s.KeyInfo(id)
	if !ok {
		return document.VerificationMethod{}, NewKeyNotFoundError(id)
	}
	id = did.ResolveRef(s.Owner(), id)
	if vmType == "" {
		vmType = principal.TypeForAlgorithm(info.Algorithm)
	}
	if vmType == principal.TypeJSONWebKey2020 {
		k, err := jwk.FromPublicKey(info.Algorithm, info.PublicKey)
		if err != nil {
			return document.VerificationMethod{}, err
		}
		return document.VerificationMethod{
			ID:           id,
			Type:         vmType,
			Controller:   s.Owner().String(),
			PublicKeyJwk: &k,
		}, nil
	}
	p, err := factory.Lookup(info.Algorithm)
	if err != nil {
		return document.VerificationMethod{}, err
	}
	vm, err := document.NewVerificationMethod(id, s.Owner(), info.Algorithm, p.PublicKeyCode(), info.PublicKey)
	if err != nil {
		return document.VerificationMethod{}, err
	}
	vm.Type = vmType
	return vm, nil
}
