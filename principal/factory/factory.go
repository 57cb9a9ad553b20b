// Package factory maps algorithm tags, multicodec tags and verification
// method types to [principal.Provider] implementations.
package factory

import (
	"fmt"
	"sync"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/principal/ed25519"
	"github.com/storacha/go-didauth/principal/p256"
	"github.com/storacha/go-didauth/principal/rsa"
	"github.com/storacha/go-didauth/principal/secp256k1"
)

// Factory resolves providers. The zero value is not usable, create one with
// [New] or use [Default].
type Factory struct {
	mu        sync.RWMutex
	providers map[principal.Algorithm]principal.Provider
}

// New creates a factory holding the given providers.
func New(providers ...principal.Provider) *Factory {
	f := &Factory{providers: map[principal.Algorithm]principal.Provider{}}
	for _, p := range providers {
		f.providers[p.Algorithm()] = p
	}
	return f
}

var defaultFactory = New(
	ed25519.Provider{},
	secp256k1.Provider{},
	p256.Provider{},
	rsa.Provider{},
)

// Default returns a factory with every built in provider.
func Default() *Factory {
	return defaultFactory
}

// Register adds or replaces the provider for its algorithm.
func (f *Factory) Register(p principal.Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.providers[p.Algorithm()] = p
}

// Lookup returns the provider for alg or an UnsupportedAlgorithm failure.
func (f *Factory) Lookup(alg principal.Algorithm) (principal.Provider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.providers[alg]
	if !ok {
		return nil, principal.NewUnsupportedAlgorithmError(alg)
	}
	return p, nil
}

// ForCode returns the provider whose public key multicodec is code.
func (f *Factory) ForCode(code multicodec.Code) (principal.Provider, error) {
	alg, ok := principal.AlgorithmForCode(code)
	if !ok {
		return nil, principal.NewUnsupportedAlgorithmError(fmt.Sprintf("multicodec 0x%x", uint64(code)))
	}
	return f.Lookup(alg)
}

// ForPrivateCode returns the provider whose private key multicodec is code.
func (f *Factory) ForPrivateCode(code multicodec.Code) (principal.Provider, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range f.providers {
		if p.PrivateKeyCode() == code {
			return p, nil
		}
	}
	return nil, principal.NewUnsupportedAlgorithmError(fmt.Sprintf("multicodec 0x%x", uint64(code)))
}

// ForType returns the provider implied by a verification method type.
func (f *Factory) ForType(vmType string) (principal.Provider, error) {
	alg, ok := principal.AlgorithmForType(vmType)
	if !ok {
		return nil, principal.NewUnsupportedAlgorithmError(vmType)
	}
	return f.Lookup(alg)
}

// Algorithms lists the registered algorithms.
func (f *Factory) Algorithms() []principal.Algorithm {
	f.mu.RLock()
	defer f.mu.RUnlock()
	algs := make([]principal.Algorithm, 0, len(f.providers))
	for a := range f.providers {
		algs = append(algs, a)
	}
	return algs
}

// Lookup resolves alg using the [Default] factory.
func Lookup(alg principal.Algorithm) (principal.Provider, error) {
	return defaultFactory.Lookup(alg)
}

// ForCode resolves code using the [Default] factory.
func ForCode(code multicodec.Code) (principal.Provider, error) {
	return defaultFactory.ForCode(code)
}

// ForType resolves vmType using the [Default] factory.
func ForType(vmType string) (principal.Provider, error) {
	return defaultFactory.ForType(vmType)
}
