// Package secp256k1 provides the ES256K signature provider.
//
// Private keys are 32 byte scalars, public keys are 33 byte compressed points
// (65 byte uncompressed points are accepted for verification). Signatures are
// 64 byte R||S over the SHA-256 digest of the message. Signing is
// deterministic (RFC 6979).
package secp256k1

import (
	"crypto/sha256"
	"fmt"

	secp "github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/principal"
)

const Code = multicodec.Secp256k1Pub
const PrivateCode = multicodec.Secp256k1Priv

const (
	privateKeySize = 32
	signatureSize  = 64
)

type Provider struct{}

var _ principal.Provider = Provider{}

func (Provider) Algorithm() principal.Algorithm {
	return principal.ES256K
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
	priv, err := secp.GeneratePrivateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generating secp256k1 key: %w", err)
	}
	return priv.PubKey().SerializeCompressed(), priv.Serialize(), nil
}

func (Provider) Sign(msg []byte, priv []byte) ([]byte, error) {
	key, err := privateKey(priv)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(msg)
	// compact signatures are recovery code || R || S
	compact := ecdsa.SignCompact(key, digest[:], true)
	return compact[1:], nil
}

func (Provider) Verify(msg []byte, sig []byte, pub []byte) bool {
	if len(sig) != signatureSize {
		return false
	}
	pk, err := secp.ParsePubKey(pub)
	if err != nil {
		return false
	}
	var r, s secp.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return false
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false
	}
	digest := sha256.Sum256(msg)
	return ecdsa.NewSignature(&r, &s).Verify(digest[:], pk)
}

func (Provider) DerivePublicKey(priv []byte) ([]byte, error) {
	key, err := privateKey(priv)
	if err != nil {
		return nil, err
	}
	return key.PubKey().SerializeCompressed(), nil
}

// Compress converts a 33 or 65 byte public key to its 33 byte compressed
// form.
func Compress(pub []byte) ([]byte, error) {
	pk, err := secp.ParsePubKey(pub)
	if err != nil {
		return nil, fmt.Errorf("parsing secp256k1 public key: %w", err)
	}
	return pk.SerializeCompressed(), nil
}

// Uncompressed returns the affine X and Y coordinates of a public key, each
// 32 bytes.
func Uncompressed(pub []byte) ([]byte, []byte, error) {
	pk, err := secp.ParsePubKey(pub)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing secp256k1 public key: %w", err)
	}
	u := pk.SerializeUncompressed()
	return u[1:33], u[33:], nil
}

func privateKey(priv []byte) (*secp.PrivateKey, error) {
	if len(priv) != privateKeySize {
		return nil, fmt.Errorf("invalid length: %d wanted: %d", len(priv), privateKeySize)
	}
	var scalar secp.ModNScalar
	if overflow := scalar.SetByteSlice(priv); overflow || scalar.IsZero() {
		return nil, fmt.Errorf("invalid secp256k1 private key scalar")
	}
	return secp.NewPrivateKey(&scalar), nil
}
