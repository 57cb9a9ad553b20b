package did

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDIDKey(t *testing.T) {
	str := "did:key:z6Mkod5Jr3yd5SC7UDueqK4dAAw5xYJYjksy722tA9Boxc4z"
	d, err := Parse(str)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if d.String() != str {
		t.Fatalf("expected %v to equal %v", d.String(), str)
	}
	require.Equal(t, "key", d.Method())
	require.Equal(t, "z6Mkod5Jr3yd5SC7UDueqK4dAAw5xYJYjksy722tA9Boxc4z", d.Identifier())
	require.Equal(t, "", d.Fragment())
}

func TestParseDIDWeb(t *testing.T) {
	str := "did:web:up.web3.storage"
	d, err := Parse(str)
	if err != nil {
		t.Fatalf("%v", err)
	}
	if d.String() != str {
		t.Fatalf("expected %v to equal %v", d.String(), str)
	}
	require.Equal(t, "web", d.Method())
}

func TestFragment(t *testing.T) {
	d, err := Parse("did:example:alice#key-1")
	require.NoError(t, err)
	require.Equal(t, "key-1", d.Fragment())
	require.Equal(t, "did:example:alice", d.WithoutFragment().String())
	require.Equal(t, "alice", d.Identifier())
	require.Equal(t, "did:example:alice#key-2", d.WithFragment("#key-2").String())
}

func TestParseInvalid(t *testing.T) {
	for _, str := range []string{
		"",
		"key:z6Mk",
		"did:",
		"did:key",
		"did::abc",
		"did:KEY:abc",
		"did:key:",
		"did:web:example.com:",
		"did:example:alice#",
	} {
		t.Run(str, func(t *testing.T) {
			_, err := Parse(str)
			require.Error(t, err)
		})
	}
}

func TestEquivalence(t *testing.T) {
	u0 := DID{}
	u1 := Undef
	if u0 != u1 {
		t.Fatalf("undef DID not equivalent")
	}
	require.False(t, u0.Defined())

	d0, err := Parse("did:key:z6Mkod5Jr3yd5SC7UDueqK4dAAw5xYJYjksy722tA9Boxc4z")
	if err != nil {
		t.Fatalf("%v", err)
	}

	d1, err := Parse("did:key:z6Mkod5Jr3yd5SC7UDueqK4dAAw5xYJYjksy722tA9Boxc4z")
	if err != nil {
		t.Fatalf("%v", err)
	}

	if d0 != d1 {
		t.Fatalf("two equivalent DID not equivalent")
	}
}

func TestResolveRef(t *testing.T) {
	base := MustParse("did:example:alice")
	require.Equal(t, "did:example:alice#key-1", ResolveRef(base, "#key-1"))
	require.Equal(t, "did:example:bob#key-1", ResolveRef(base, "did:example:bob#key-1"))
}

func TestRoundtripJSON(t *testing.T) {
	id, err := Parse("did:key:z6Mkod5Jr3yd5SC7UDueqK4dAAw5xYJYjksy722tA9Boxc4z")
	require.NoError(t, err)

	type Object struct {
		ID                DID  `json:"id"`
		UndefID           DID  `json:"undef_id"`
		OptionalPresentID *DID `json:"optional_present_id"`
		OptionalAbsentID  *DID `json:"optional_absent_id"`
	}
	obj := Object{
		ID:                id,
		UndefID:           Undef,
		OptionalPresentID: &id,
		OptionalAbsentID:  nil,
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var out Object
	err = json.Unmarshal(data, &out)
	require.NoError(t, err)

	require.Equal(t, obj.ID, out.ID)
	require.Equal(t, obj.UndefID, out.UndefID)
	require.Equal(t, obj.OptionalPresentID.String(), out.OptionalPresentID.String())
	require.Nil(t, out.OptionalAbsentID)
}
