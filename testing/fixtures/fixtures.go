package fixtures

import (
	"fmt"

	"github.com/multiformats/go-multicodec"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/multiformat"
	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/signer"
)

// Identity is a did:key identity with its signing key and document.
type Identity struct {
	DID      did.DID
	KeyID    string
	Keyring  *signer.Keyring
	Document *document.Document
}

// did:key:z6Mkk89bC3JrVqKie71YEcc5M1SMVxuCgNx6zLZ8SYJsxALi
var Alice = mustParse("MgCZT5vOnYZoVAeyjnzuJIVY9J4LNtJ+f8Js0cTPuKUpFne0BVEDJjEu6quFIU8yp91/TY/+MYK8GvlKoTDnqOCovCVM=")

// did:key:z6MkffDZCkCTWreg8868fG1FGFogcJj5X6PY93pPcWDn9bob
var Bob = mustParse("MgCYbj5AJfVvdrjkjNCxB3iAUwx7RQHVQ7H1sKyHy46Iose0BEevXgL1V73PD9snOCIoONgb+yQ9sycYchQC8kygR4qY=")

// did:key:z6MktafZTREjJkvV5mfJxcLpNBoVPwDLhTuMg9ng7dY4zMAL
var Mallory = mustParse("MgCYtH0AvYxiQwBG6+ZXcwlXywq9tI50G2mCAUJbwrrahkO0B0elFYkl3Ulf3Q3A/EvcVY0utb4etiSE8e6pi4H0FEmU=")

// did:key:z6MkrZ1r5XBFZjBU34qyD8fueMbMRkKw17BZaq2ivKFjnz2z
var Service = mustParse("MgCYKXoHVy7Vk4/QjcEGi+MCqjntUiasxXJ8uJKY0qh11e+0Bs8WsdqGK7xothgrDzzWD0ME7ynPjz2okXDh8537lId8=")

// Parse decodes a multibase encoded Ed25519 private key (seed followed by
// the tagged public key) into an identity.
func Parse(encoded string) (Identity, error) {
	tmp := signer.NewKeyring(did.Undef)
	info, err := tmp.Import("#k", encoded)
	if err != nil {
		return Identity{}, err
	}
	if info.Algorithm != principal.Ed25519 {
		return Identity{}, fmt.Errorf("not an ed25519 private key: %s", info.Algorithm)
	}
	msid, err := multiformat.Encode(info.PublicKey, multicodec.Ed25519Pub)
	if err != nil {
		return Identity{}, err
	}
	id, err := did.Parse("did:key:" + msid)
	if err != nil {
		return Identity{}, err
	}
	keyID := id.WithFragment(msid).String()

	kr := signer.NewKeyring(id)
	if _, err := kr.Import(keyID, encoded); err != nil {
		return Identity{}, err
	}
	vm, err := signer.VerificationMethod(kr, keyID, principal.TypeEd25519VerificationKey2020)
	if err != nil {
		return Identity{}, err
	}
	doc := document.New(id)
	err = doc.AddMethod(vm,
		document.Authentication,
		document.AssertionMethod,
		document.CapabilityInvocation,
		document.CapabilityDelegation,
	)
	if err != nil {
		return Identity{}, err
	}
	return Identity{DID: id, KeyID: keyID, Keyring: kr, Document: doc}, nil
}

func mustParse(encoded string) Identity {
	id, err := Parse(encoded)
	if err != nil {
		panic(err)
	}
	return id
}
