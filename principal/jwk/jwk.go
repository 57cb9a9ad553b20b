// Package jwk converts between raw public key bytes and their JSON Web Key
// representation (RFC 7517, RFC 8037 for OKP keys).
package jwk

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/principal/p256"
	"github.com/storacha/go-didauth/principal/secp256k1"
)

// JWK is a public JSON Web Key.
type JWK struct {
	Kty string `json:"kty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	Alg string `json:"alg,omitempty"`
	Kid string `json:"kid,omitempty"`
}

const (
	ktyOKP = "OKP"
	ktyEC  = "EC"
	ktyRSA = "RSA"

	crvEd25519   = "Ed25519"
	crvSecp256k1 = "secp256k1"
	crvP256      = "P-256"
)

var b64 = base64.RawURLEncoding

// FromPublicKey builds the JWK for a raw public key of the given algorithm.
func FromPublicKey(alg principal.Algorithm, pub []byte) (JWK, error) {
	switch alg {
	case principal.Ed25519:
		if len(pub) != 32 {
			return JWK{}, fmt.Errorf("invalid Ed25519 public key length: %d", len(pub))
		}
		return JWK{Kty: ktyOKP, Crv: crvEd25519, X: b64.EncodeToString(pub)}, nil
	case principal.ES256K:
		x, y, err := secp256k1.Uncompressed(pub)
		if err != nil {
			return JWK{}, err
		}
		return JWK{Kty: ktyEC, Crv: crvSecp256k1, X: b64.EncodeToString(x), Y: b64.EncodeToString(y)}, nil
	case principal.ES256:
		x, y, err := p256.Uncompressed(pub)
		if err != nil {
			return JWK{}, err
		}
		return JWK{Kty: ktyEC, Crv: crvP256, X: b64.EncodeToString(x), Y: b64.EncodeToString(y)}, nil
	case principal.RS256:
		key, err := x509.ParsePKCS1PublicKey(pub)
		if err != nil {
			return JWK{}, fmt.Errorf("parsing RSA public key: %w", err)
		}
		return JWK{
			Kty: ktyRSA,
			N:   b64.EncodeToString(key.N.Bytes()),
			E:   b64.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}, nil
	default:
		return JWK{}, principal.NewUnsupportedAlgorithmError(alg)
	}
}

// PublicKey returns the algorithm and raw public key bytes, in the format the
// algorithm's provider expects.
func (k JWK) PublicKey() (principal.Algorithm, []byte, error) {
	switch k.Kty {
	case ktyOKP:
		if k.Crv != crvEd25519 {
			return "", nil, principal.NewUnsupportedAlgorithmError("OKP curve " + k.Crv)
		}
		x, err := b64.DecodeString(k.X)
		if err != nil {
			return "", nil, fmt.Errorf("decoding x: %w", err)
		}
		if len(x) != 32 {
			return "", nil, fmt.Errorf("invalid Ed25519 public key length: %d", len(x))
		}
		return principal.Ed25519, x, nil
	case ktyEC:
		point, err := k.uncompressedPoint()
		if err != nil {
			return "", nil, err
		}
		switch k.Crv {
		case crvSecp256k1:
			pub, err := secp256k1.Compress(point)
			if err != nil {
				return "", nil, err
			}
			return principal.ES256K, pub, nil
		case crvP256:
			pk, err := p256.PublicKey(point)
			if err != nil {
				return "", nil, err
			}
			return principal.ES256, compressP256(pk.X, pk.Y), nil
		default:
			return "", nil, principal.NewUnsupportedAlgorithmError("EC curve " + k.Crv)
		}
	case ktyRSA:
		n, err := b64.DecodeString(k.N)
		if err != nil {
			return "", nil, fmt.Errorf("decoding n: %w", err)
		}
		e, err := b64.DecodeString(k.E)
		if err != nil {
			return "", nil, fmt.Errorf("decoding e: %w", err)
		}
		exp := new(big.Int).SetBytes(e)
		if len(n) == 0 || !exp.IsInt64() || exp.Int64() < 2 || exp.Int64() > 1<<31-1 {
			return "", nil, fmt.Errorf("invalid RSA public key")
		}
		key := &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}
		return principal.RS256, x509.MarshalPKCS1PublicKey(key), nil
	default:
		return "", nil, principal.NewUnsupportedAlgorithmError("kty " + k.Kty)
	}
}

func (k JWK) uncompressedPoint() ([]byte, error) {
	x, err := b64.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("decoding x: %w", err)
	}
	y, err := b64.DecodeString(k.Y)
	if err != nil {
		return nil, fmt.Errorf("decoding y: %w", err)
	}
	if len(x) != 32 || len(y) != 32 {
		return nil, fmt.Errorf("invalid EC coordinate length")
	}
	point := make([]byte, 0, 65)
	point = append(point, 0x04)
	point = append(point, x...)
	return append(point, y...), nil
}

func compressP256(x, y *big.Int) []byte {
	out := make([]byte, 33)
	out[0] = byte(2 + y.Bit(0))
	x.FillBytes(out[1:])
	return out
}
