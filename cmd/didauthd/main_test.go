package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storacha/go-didauth/config"
	"github.com/storacha/go-didauth/didauth"
	"github.com/storacha/go-didauth/testing/fixtures"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, closeFn, err := build(context.Background(), config.Config{
		Window:         config.DefaultWindow,
		ResolveTimeout: config.DefaultResolveTimeout,
		CacheSize:      config.DefaultCacheSize,
	})
	require.NoError(t, err)
	t.Cleanup(closeFn)
	return svc
}

func TestBuildMethods(t *testing.T) {
	svc := newTestService(t)
	require.Equal(t, []string{"key", "web"}, svc.registry.Methods())
}

func TestWhoami(t *testing.T) {
	r := newRouter(newTestService(t))

	obj, err := didauth.CreateSignature("GET /whoami", nil, fixtures.Alice.Keyring, fixtures.Alice.KeyID)
	require.NoError(t, err)
	header, err := didauth.ToAuthorizationHeader(obj)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, fixtures.Alice.DID.String(), body["signer_did"])
	require.Equal(t, fixtures.Alice.KeyID, body["key_id"])
	require.Equal(t, "GET /whoami", body["operation"])

	// same header again is a replay
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"code":"NONCE_REPLAYED"}`, w.Body.String())
}

func TestResolveEndpoint(t *testing.T) {
	r := newRouter(newTestService(t))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/1.0/identifiers/"+fixtures.Bob.DID.String(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Equal(t, fixtures.Bob.DID.String(), doc["id"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/1.0/identifiers/not-a-did", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
