package canonical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransform(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sorted keys", `{"b":1,"a":2}`, `{"a":2,"b":1}`},
		{"whitespace", "{ \"a\" : [ 1 , 2 ] ,\n \"b\" : { } }", `{"a":[1,2],"b":{}}`},
		{"nested", `{"z":{"y":1,"x":[{"b":true,"a":null}]}}`, `{"z":{"x":[{"a":null,"b":true}],"y":1}}`},
		{"integers", `{"ts":1700000000,"neg":-0}`, `{"neg":0,"ts":1700000000}`},
		{"fractions", `[1.50,0.000001,1e-7,1e21,123456789012345680000]`, `[1.5,0.000001,1e-7,1e+21,123456789012345680000]`},
		{"escapes", `"a\u000fb\"c\\\n"`, `"a\u000fb\"c\\\n"`},
		{"html chars kept", `"<script>&"`, `"<script>&"`},
		{"unicode", `"é😀"`, "\"é😀\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Transform([]byte(tt.in))
			require.NoError(t, err)
			require.Equal(t, tt.want, string(out))
		})
	}
}

func TestTransformRejects(t *testing.T) {
	for _, in := range []string{``, `{`, `{"a":1} {}`, `nope`, `{"a":1,"a":2}`, `[1e400]`} {
		_, err := Transform([]byte(in))
		require.ErrorIs(t, err, ErrInvalidJSON, in)
	}
}

func TestMarshalIsStable(t *testing.T) {
	type payload struct {
		Operation string         `json:"operation"`
		Params    map[string]any `json:"params"`
		Timestamp int64          `json:"timestamp"`
		Nonce     string         `json:"nonce"`
	}
	p := payload{
		Operation: "unit-test",
		Params:    map[string]any{"z": 1, "a": []any{"x", 2.5}, "m": map[string]any{"k": "v"}},
		Timestamp: 1700000000,
		Nonce:     "abc",
	}
	first, err := Marshal(p)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(p)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.Equal(t, `{"nonce":"abc","operation":"unit-test","params":{"a":["x",2.5],"m":{"k":"v"},"z":1},"timestamp":1700000000}`, string(first))

	again, err := Transform(first)
	require.NoError(t, err)
	require.Equal(t, first, again)
}

func TestKeyOrderUTF16(t *testing.T) {
	// U+FB33 sorts after U+1F600 in UTF-16 order but before it in code point order
	out, err := Transform([]byte("{\"\uFB33\":1,\"\U0001F600\":2}"))
	require.NoError(t, err)
	require.Equal(t, "{\"\U0001F600\":2,\"\uFB33\":1}", string(out))
}

func TestSupplementaryKeysAreDeterministic(t *testing.T) {
	// keys sharing a high surrogate differ only in their second code unit
	v := map[string]any{
		"\U00010001": 1,
		"\U00010000": 2,
		"\U0001F601": 3,
		"\U0001F600": 4,
		"\U0001F602": 5,
		"\uFFFF":     6,
	}
	want := "{\"\U00010000\":2,\"\U00010001\":1,\"\U0001F600\":4,\"\U0001F601\":3,\"\U0001F602\":5,\"\uFFFF\":6}"
	for i := 0; i < 200; i++ {
		out, err := Marshal(v)
		require.NoError(t, err)
		require.Equal(t, want, string(out))
	}
}

func TestEscapedSurrogatePairs(t *testing.T) {
	out, err := Transform([]byte(`{"\ud83d\ude01":1,"\ud83d\ude00":2}`))
	require.NoError(t, err)
	require.Equal(t, "{\"\U0001F600\":2,\"\U0001F601\":1}", string(out))
}
