// Package ed25519 provides the Ed25519 signature provider.
//
// Private keys are the 32 byte RFC 8032 seed (a 64 byte seed||public key is
// also accepted), public keys are 32 bytes. Signing is deterministic.
package ed25519

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/principal"
)

const Code = multicodec.Ed25519Pub
const PrivateCode = multicodec.Ed25519Priv

const keySize = 32

type Provider struct{}

var _ principal.Provider = Provider{}

func (Provider) Algorithm() principal.Algorithm {
	return principal.Ed25519
}

func (Provider) PublicKeyCode() multicodec.Code {
	return Code
}

func (Provider) PrivateKeyCode() multicodec.Code {
	return PrivateCode
}

func (Provider) Deterministic() bool {
	return true
}

func (Provider) GenerateKeyPair() ([]byte, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating Ed25519 key: %w", err)
	}
	return []byte(pub), priv.Seed(), nil
}

func (Provider) Sign(msg []byte, priv []byte) ([]byte, error) {
	pk, err := privateKey(priv)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(pk, msg), nil
}

func (Provider) Verify(msg []byte, sig []byte, pub []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig)
}

func (Provider) DerivePublicKey(priv []byte) ([]byte, error) {
	pk, err := privateKey(priv)
	if err != nil {
		return nil, err
	}
	return []byte(pk.Public().(ed25519.PublicKey)), nil
}

func privateKey(priv []byte) (ed25519.PrivateKey, error) {
	switch len(priv) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(priv), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(priv), nil
	default:
		return nil, fmt.Errorf("invalid length: %d wanted: %d", len(priv), keySize)
	}
}
