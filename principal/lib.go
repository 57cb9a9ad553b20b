// Package principal defines the cryptographic provider contract used to sign
// and verify with the keys that identity documents publish.
//
// Providers work on raw key bytes: the formats are documented on each
// implementation. Concrete providers live in sub packages and are looked up
// by algorithm, multicodec tag or verification method type using
// [github.com/storacha/go-didauth/principal/factory].
package principal

import (
	"fmt"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/failure"
)

// Algorithm is a signature algorithm tag.
type Algorithm string

const (
	Ed25519 Algorithm = "Ed25519"
	// ES256K is ECDSA over secp256k1 with SHA-256.
	ES256K Algorithm = "ES256K"
	// ES256 is ECDSA over NIST P-256 with SHA-256.
	ES256 Algorithm = "ES256"
	// RS256 is RSASSA-PKCS1-v1_5 with SHA-256.
	RS256 Algorithm = "RS256"
)

func (a Algorithm) String() string {
	return string(a)
}

// Provider signs and verifies for one algorithm.
type Provider interface {
	Algorithm() Algorithm
	// PublicKeyCode is the multicodec tag of public keys of this provider.
	PublicKeyCode() multicodec.Code
	// PrivateKeyCode is the multicodec tag of private keys of this provider.
	PrivateKeyCode() multicodec.Code
	// Deterministic reports whether signing the same message with the same key
	// always produces the same signature.
	Deterministic() bool
	GenerateKeyPair() (pub []byte, priv []byte, err error)
	Sign(msg []byte, priv []byte) ([]byte, error)
	// Verify reports whether sig is a valid signature of msg by pub. Malformed
	// keys or signatures yield false, never a panic.
	Verify(msg []byte, sig []byte, pub []byte) bool
	DerivePublicKey(priv []byte) ([]byte, error)
}

const UnsupportedAlgorithmName = "UnsupportedAlgorithm"

// ErrUnsupportedAlgorithm matches unsupported algorithm failures with
// [errors.Is].
var ErrUnsupportedAlgorithm = failure.Sentinel(UnsupportedAlgorithmName)

// NewUnsupportedAlgorithmError creates a failure for an unknown algorithm tag,
// multicodec or verification method type.
func NewUnsupportedAlgorithmError(tag any) error {
	return failure.New(UnsupportedAlgorithmName, fmt.Sprintf("unsupported algorithm: %v", tag))
}

// Verification method types.
const (
	TypeEd25519VerificationKey2018        = "Ed25519VerificationKey2018"
	TypeEd25519VerificationKey2020        = "Ed25519VerificationKey2020"
	TypeEcdsaSecp256k1VerificationKey2019 = "EcdsaSecp256k1VerificationKey2019"
	TypeP256Key2021                       = "P256Key2021"
	TypeRsaVerificationKey2018            = "RsaVerificationKey2018"
	// TypeMultikey and TypeJSONWebKey2020 carry the algorithm in the key
	// material itself.
	TypeMultikey       = "Multikey"
	TypeJSONWebKey2020 = "JsonWebKey2020"
)

var typeAlgorithms = map[string]Algorithm{
	TypeEd25519VerificationKey2018:        Ed25519,
	TypeEd25519VerificationKey2020:        Ed25519,
	TypeEcdsaSecp256k1VerificationKey2019: ES256K,
	TypeP256Key2021:                       ES256,
	TypeRsaVerificationKey2018:            RS256,
}

// AlgorithmForType returns the algorithm implied by a verification method
// type. It returns false for types that do not imply one, such as
// [TypeMultikey].
func AlgorithmForType(vmType string) (Algorithm, bool) {
	alg, ok := typeAlgorithms[vmType]
	return alg, ok
}

// TypeForAlgorithm is the verification method type used when publishing a key
// of the given algorithm.
func TypeForAlgorithm(alg Algorithm) string {
	switch alg {
	case Ed25519:
		return TypeEd25519VerificationKey2020
	case ES256K:
		return TypeEcdsaSecp256k1VerificationKey2019
	case ES256:
		return TypeP256Key2021
	case RS256:
		return TypeRsaVerificationKey2018
	default:
		return TypeMultikey
	}
}

// AlgorithmForCode maps a public key multicodec tag to its algorithm.
func AlgorithmForCode(code multicodec.Code) (Algorithm, bool) {
	switch code {
	case multicodec.Ed25519Pub:
		return Ed25519, true
	case multicodec.Secp256k1Pub:
		return ES256K, true
	case multicodec.P256Pub:
		return ES256, true
	case multicodec.RsaPub:
		return RS256, true
	default:
		return "", false
	}
}
