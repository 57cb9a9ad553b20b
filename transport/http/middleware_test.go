package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storacha/go-didauth/capability"
	"github.com/storacha/go-didauth/didauth"
	"github.com/storacha/go-didauth/resolver"
	"github.com/storacha/go-didauth/testing/fixtures"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T) *didauth.Verifier {
	t.Helper()
	v, err := didauth.NewVerifier(resolver.NewStatic(fixtures.Alice.Document, fixtures.Bob.Document))
	require.NoError(t, err)
	return v
}

func newServer(t *testing.T, v *didauth.Verifier, opts ...Option) *httptest.Server {
	t.Helper()
	h := Middleware(v, opts...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := FromContext(r.Context())
		if !ok {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(res.SignerDID))
	}))
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server
}

func sign(t *testing.T, id fixtures.Identity, opts ...didauth.SignOption) string {
	t.Helper()
	obj, err := didauth.CreateSignature("GET /", nil, id.Keyring, id.KeyID, opts...)
	require.NoError(t, err)
	header, err := didauth.ToAuthorizationHeader(obj)
	require.NoError(t, err)
	return header
}

func get(t *testing.T, url, header string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	var b [256]byte
	n, _ := res.Body.Read(b[:])
	return string(b[:n])
}

func TestMiddleware(t *testing.T) {
	v := newVerifier(t)
	server := newServer(t, v)

	t.Run("verified", func(t *testing.T) {
		res := get(t, server.URL, sign(t, fixtures.Alice))
		require.Equal(t, http.StatusOK, res.StatusCode)
		require.Equal(t, fixtures.Alice.DID.String(), readBody(t, res))
	})

	t.Run("missing header", func(t *testing.T) {
		res := get(t, server.URL, "")
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
		require.Equal(t, didauth.Scheme, res.Header.Get("WWW-Authenticate"))
		require.Equal(t, string(didauth.InvalidHeader), ReadError(res).Code)
	})

	t.Run("replayed", func(t *testing.T) {
		header := sign(t, fixtures.Bob)
		require.Equal(t, http.StatusOK, get(t, server.URL, header).StatusCode)
		res := get(t, server.URL, header)
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
		require.Equal(t, string(didauth.NonceReplayed), ReadError(res).Code)
	})

	t.Run("stale", func(t *testing.T) {
		res := get(t, server.URL, sign(t, fixtures.Alice, didauth.WithTimestamp(time.Now().Add(-time.Hour))))
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
		require.Equal(t, string(didauth.TimestampOutOfWindow), ReadError(res).Code)
	})

	t.Run("unknown signer", func(t *testing.T) {
		res := get(t, server.URL, sign(t, fixtures.Mallory))
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
		require.Equal(t, string(didauth.DIDDocumentNotFound), ReadError(res).Code)
	})
}

func TestMiddlewareAction(t *testing.T) {
	server := newServer(t, newVerifier(t), WithAction(capability.AgreeKey))

	res := get(t, server.URL, sign(t, fixtures.Alice))
	require.Equal(t, http.StatusForbidden, res.StatusCode)
	herr := ReadError(res)
	require.Equal(t, string(didauth.InsufficientCapability), herr.Code)
	require.Equal(t, http.StatusForbidden, herr.Status)
}

func TestMiddlewareOptional(t *testing.T) {
	server := newServer(t, newVerifier(t), WithOptional())

	res := get(t, server.URL, "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "anonymous", readBody(t, res))

	res = get(t, server.URL, "DIDAuth !!!")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestMiddlewareNoBackend(t *testing.T) {
	reg, err := resolver.NewRegistry()
	require.NoError(t, err)
	v, err := didauth.NewVerifier(reg)
	require.NoError(t, err)
	server := newServer(t, v)

	res := get(t, server.URL, sign(t, fixtures.Alice))
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, string(didauth.DIDDocumentNotFound), ReadError(res).Code)
}

func TestErrorHandler(t *testing.T) {
	var seen *HTTPError
	server := newServer(t, newVerifier(t), WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err *HTTPError) {
		seen = err
		w.WriteHeader(http.StatusTeapot)
		json.NewEncoder(w).Encode(err)
	}))

	res := get(t, server.URL, "Bearer abc")
	require.Equal(t, http.StatusTeapot, res.StatusCode)
	require.NotNil(t, seen)
	require.Equal(t, string(didauth.InvalidHeader), seen.Code)
	require.Equal(t, http.StatusUnauthorized, seen.Status)
}
