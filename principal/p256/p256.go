// Package p256 provides the ES256 signature provider.
//
// Private keys are 32 byte scalars, public keys are 33 byte compressed points
// (65 byte uncompressed points are accepted for verification). Signatures are
// 64 byte R||S over the SHA-256 digest of the message. Signing is randomized.
package p256

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/principal"
)

const Code = multicodec.P256Pub
const PrivateCode = multicodec.P256Priv

const (
	scalarSize    = 32
	signatureSize = 2 * scalarSize
)

type Provider struct{}

var _ principal.Provider = Provider{}

func (Provider) Algorithm() principal.Algorithm {
	return principal.ES256
}

func (Provider) PublicKeyCode() multicodec.Code {
	return Code
}

func (Provider) PrivateKeyCode() multicodec.Code {
	return PrivateCode
}

func (Provider) Deterministic() bool {
	return false
}

func (Provider) GenerateKeyPair() ([]byte, []byte, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating P-256 key: %w", err)
	}
	priv := key.D.FillBytes(make([]byte, scalarSize))
	return elliptic.MarshalCompressed(elliptic.P256(), key.X, key.Y), priv, nil
}

func (p Provider) Sign(msg []byte, priv []byte) ([]byte, error) {
	key, err := privateKey(priv)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(msg)
	r, s, err := ecdsa.Sign(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	sig := make([]byte, signatureSize)
	r.FillBytes(sig[:scalarSize])
	s.FillBytes(sig[scalarSize:])
	return sig, nil
}

func (Provider) Verify(msg []byte, sig []byte, pub []byte) bool {
	if len(sig) != signatureSize {
		return false
	}
	pk, err := PublicKey(pub)
	if err != nil {
		return false
	}
	r := new(big.Int).SetBytes(sig[:scalarSize])
	s := new(big.Int).SetBytes(sig[scalarSize:])
	digest := sha256.Sum256(msg)
	return ecdsa.Verify(pk, digest[:], r, s)
}

func (Provider) DerivePublicKey(priv []byte) ([]byte, error) {
	key, err := privateKey(priv)
	if err != nil {
		return nil, err
	}
	return elliptic.MarshalCompressed(elliptic.P256(), key.X, key.Y), nil
}

// PublicKey parses a 33 byte compressed or 65 byte uncompressed point.
func PublicKey(pub []byte) (*ecdsa.PublicKey, error) {
	curve := elliptic.P256()
	var x, y *big.Int
	switch len(pub) {
	case 1 + scalarSize:
		x, y = elliptic.UnmarshalCompressed(curve, pub)
	case 1 + 2*scalarSize:
		// ecdh validates the point is on the curve
		if _, err := ecdh.P256().NewPublicKey(pub); err != nil {
			return nil, fmt.Errorf("parsing P-256 public key: %w", err)
		}
		x = new(big.Int).SetBytes(pub[1 : 1+scalarSize])
		y = new(big.Int).SetBytes(pub[1+scalarSize:])
	}
	if x == nil {
		return nil, fmt.Errorf("invalid P-256 public key")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// Uncompressed returns the affine X and Y coordinates of a public key, each
// 32 bytes.
func Uncompressed(pub []byte) ([]byte, []byte, error) {
	pk, err := PublicKey(pub)
	if err != nil {
		return nil, nil, err
	}
	return pk.X.FillBytes(make([]byte, scalarSize)), pk.Y.FillBytes(make([]byte, scalarSize)), nil
}

func privateKey(priv []byte) (*ecdsa.PrivateKey, error) {
	if len(priv) != scalarSize {
		return nil, fmt.Errorf("invalid length: %d wanted: %d", len(priv), scalarSize)
	}
	ek, err := ecdh.P256().NewPrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("invalid P-256 private key: %w", err)
	}
	point := ek.PublicKey().Bytes()
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     new(big.Int).SetBytes(point[1 : 1+scalarSize]),
			Y:     new(big.Int).SetBytes(point[1+scalarSize:]),
		},
		D: new(big.Int).SetBytes(priv),
	}, nil
}
