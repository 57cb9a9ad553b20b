package key

import (
	"context"
	"testing"

	"github.com/storacha/go-didauth/capability"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/didauth"
	"github.com/storacha/go-didauth/principal"
	"github.com/storacha/go-didauth/principal/factory"
	"github.com/storacha/go-didauth/resolver"
	"github.com/storacha/go-didauth/signer"
	"github.com/storacha/go-didauth/testing/fixtures"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	ctx := context.Background()
	alice := fixtures.Alice

	doc, err := New().Resolve(ctx, alice.DID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Equal(t, alice.DID, doc.ID)
	require.True(t, capability.HasCapability(doc, alice.KeyID, capability.Authentication))
	require.True(t, capability.HasCapability(doc, alice.KeyID, capability.CapabilityDelegation))
	require.False(t, capability.HasCapability(doc, alice.KeyID, capability.KeyAgreement))

	vm, ok := doc.FindMethod(alice.KeyID)
	require.True(t, ok)
	alg, pub, err := vm.PublicKey()
	require.NoError(t, err)
	require.Equal(t, principal.Ed25519, alg)
	info, _ := alice.Keyring.KeyInfo(alice.KeyID)
	require.Equal(t, info.PublicKey, pub)
}

func TestResolveInvalid(t *testing.T) {
	ctx := context.Background()
	for _, s := range []string{
		"did:key:nope",
		"did:key:z6Mk",
		"did:key:zQ3s",
	} {
		t.Run(s, func(t *testing.T) {
			doc, err := New().Resolve(ctx, did.MustParse(s))
			require.NoError(t, err)
			require.Nil(t, doc)
			ok, err := New().Exists(ctx, did.MustParse(s))
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestFormat(t *testing.T) {
	for _, alg := range []principal.Algorithm{principal.Ed25519, principal.ES256K, principal.ES256, principal.RS256} {
		t.Run(alg.String(), func(t *testing.T) {
			p, err := factory.Lookup(alg)
			require.NoError(t, err)
			pub, _, err := p.GenerateKeyPair()
			require.NoError(t, err)

			id, err := Format(p.PublicKeyCode(), pub)
			require.NoError(t, err)
			doc, err := Document(id)
			require.NoError(t, err)
			_, got, err := doc.VerificationMethod[0].PublicKey()
			require.NoError(t, err)
			require.Equal(t, pub, got)
		})
	}

	_, err := Format(0x1234, []byte{1})
	require.ErrorIs(t, err, principal.ErrUnsupportedAlgorithm)
}

func TestVerifyWithRegistry(t *testing.T) {
	ctx := context.Background()
	p, err := factory.Lookup(principal.ES256K)
	require.NoError(t, err)
	pub, priv, err := p.GenerateKeyPair()
	require.NoError(t, err)
	id, err := Format(p.PublicKeyCode(), pub)
	require.NoError(t, err)

	kr := signer.NewKeyring(id)
	keyID := id.WithFragment(id.Identifier()).String()
	_, err = kr.Add(keyID, principal.ES256K, priv)
	require.NoError(t, err)

	reg, err := resolver.NewRegistry(resolver.WithBackend(New()))
	require.NoError(t, err)
	obj, err := didauth.CreateSignature("unit-test", nil, kr, keyID)
	require.NoError(t, err)
	header, err := didauth.ToAuthorizationHeader(obj)
	require.NoError(t, err)

	res, err := didauth.VerifyAuthHeader(ctx, header, reg)
	require.NoError(t, err)
	require.True(t, res.OK, res.Code)
}
