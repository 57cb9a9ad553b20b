package fixtures

import (
	"testing"

	"github.com/storacha/go-didauth/capability"
	"github.com/stretchr/testify/require"
)

func TestIdentities(t *testing.T) {
	tests := map[string]struct {
		id  Identity
		did string
	}{
		"alice":   {Alice, "did:key:z6Mkk89bC3JrVqKie71YEcc5M1SMVxuCgNx6zLZ8SYJsxALi"},
		"bob":     {Bob, "did:key:z6MkffDZCkCTWreg8868fG1FGFogcJj5X6PY93pPcWDn9bob"},
		"mallory": {Mallory, "did:key:z6MktafZTREjJkvV5mfJxcLpNBoVPwDLhTuMg9ng7dY4zMAL"},
		"service": {Service, "did:key:z6MkrZ1r5XBFZjBU34qyD8fueMbMRkKw17BZaq2ivKFjnz2z"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.did, tc.id.DID.String())
			require.True(t, tc.id.Keyring.CanSignWithKeyID(tc.id.KeyID))
			require.True(t, capability.HasCapability(tc.id.Document, tc.id.KeyID, capability.Authentication))
			require.False(t, capability.HasCapability(tc.id.Document, tc.id.KeyID, capability.KeyAgreement))
		})
	}
}
