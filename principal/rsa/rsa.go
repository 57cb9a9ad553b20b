// Package rsa provides the RS256 signature provider.
//
// Keys are PKCS #1 DER encoded. Signatures are RSASSA-PKCS1-v1_5 over the
// SHA-256 digest of the message, which is deterministic.
package rsa

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/principal"
)

const Code = multicodec.RsaPub
const PrivateCode = multicodec.RsaPriv

const keySize = 2048

type Provider struct{}

var _ principal.Provider = Provider{}

func (Provider) Algorithm() principal.Algorithm {
	return principal.RS256
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
	priv, err := rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return nil, nil, fmt.Errorf("generating RSA key: %w", err)
	}
	return x509.MarshalPKCS1PublicKey(&priv.PublicKey), x509.MarshalPKCS1PrivateKey(priv), nil
}

func (Provider) Sign(msg []byte, priv []byte) ([]byte, error) {
	key, err := x509.ParsePKCS1PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	digest := sha256.Sum256(msg)
	sig, err := rsa.SignPKCS1v15(nil, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing: %w", err)
	}
	return sig, nil
}

func (Provider) Verify(msg []byte, sig []byte, pub []byte) bool {
	key, err := x509.ParsePKCS1PublicKey(pub)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(msg)
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil
}

func (Provider) DerivePublicKey(priv []byte) ([]byte, error) {
	key, err := x509.ParsePKCS1PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return x509.MarshalPKCS1PublicKey(&key.PublicKey), nil
}
