// Package key resolves did:key identities, whose document is derived from
// the public key encoded in the identifier.
package key

import (
	"context"
	"fmt"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/multiformat"
	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/resolver"
)

const Method = "key"

// Backend derives documents for did:key identities. It performs no I/O.
type Backend struct{}

var _ resolver.Backend = Backend{}

func New() Backend {
	return Backend{}
}

func (Backend) Method() string {
	return Method
}

// Resolve returns the derived document. Identifiers that do not encode a
// supported public key do not exist.
func (Backend) Resolve(_ context.Context, id did.DID) (*document.Document, error) {
	doc, err := Document(id)
	if err != nil {
		return nil, nil
	}
	return doc, nil
}

func (b Backend) Exists(ctx context.Context, id did.DID) (bool, error) {
	doc, err := b.Resolve(ctx, id)
	return doc != nil, err
}

// Document derives the document of a did:key identity. The single method is
// listed under every relationship except keyAgreement.
func Document(id did.DID) (*document.Document, error) {
	id = id.WithoutFragment()
	if id.Method() != Method {
		return nil, fmt.Errorf("not a did:key: %s", id)
	}
	msid := id.Identifier()
	pub, code, err := multiformat.Decode(msid)
	if err != nil {
		return nil, fmt.Errorf("decoding did:key identifier: %w", err)
	}
	if _, ok := principal.AlgorithmForCode(code); !ok {
		return nil, principal.NewUnsupportedAlgorithmError(code)
	}
	if err := checkKeyLength(code, pub); err != nil {
		return nil, err
	}

	vm := document.VerificationMethod{
		ID:                 id.WithFragment(msid).String(),
		Type:               principal.TypeMultikey,
		Controller:         id.String(),
		PublicKeyMultibase: msid,
	}
	doc := document.New(id)
	err = doc.AddMethod(vm,
		document.Authentication,
		document.AssertionMethod,
		document.CapabilityInvocation,
		document.CapabilityDelegation,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Format returns the did:key identity for a public key.
func Format(code multicodec.Code, pub []byte) (did.DID, error) {
	if _, ok := principal.AlgorithmForCode(code); !ok {
		return did.Undef, principal.NewUnsupportedAlgorithmError(code)
	}
	if err := checkKeyLength(code, pub); err != nil {
		return did.Undef, err
	}
	msid, err := multiformat.Encode(pub, code)
	if err != nil {
		return did.Undef, err
	}
	return did.Parse(did.Prefix + Method + ":" + msid)
}

func checkKeyLength(code multicodec.Code, pub []byte) error {
	want := 0
	switch code {
	case multicodec.Ed25519Pub:
		want = 32
	case multicodec.Secp256k1Pub, multicodec.P256Pub:
		want = 33
	}
	if want != 0 && len(pub) != want {
		return fmt.Errorf("invalid %s public key length: %d", code, len(pub))
	}
	if len(pub) == 0 {
		return fmt.Errorf("empty %s public key", code)
	}
	return nil
}
