package http

import (
	"fmt"
	"net/http"

	"github.com/storacha/go-didauth/didauth"
	"github.com/storacha/go-didauth/signer"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RoundTripper signs every request with a fresh DIDAuth header before
// handing it to Base.
type RoundTripper struct {
	Base   http.RoundTripper
	Signer signer.Signer
	KeyID  string
	// Operation names the signed operation and its parameters. The default
	// signs "METHOD /path" with no parameters.
	Operation func(r *http.Request) (string, map[string]any)
}

var _ http.RoundTripper = (*RoundTripper)(nil)

func (rt *RoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	op, params := defaultOperation(r)
	if rt.Operation != nil {
		op, params = rt.Operation(r)
	}
	obj, err := didauth.CreateSignature(op, params, rt.Signer, rt.KeyID)
	if err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}
	header, err := didauth.ToAuthorizationHeader(obj)
	if err != nil {
		return nil, err
	}

	signed := r.Clone(r.Context())
	signed.Header.Set("Authorization", header)
	base := rt.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(signed)
}

func defaultOperation(r *http.Request) (string, map[string]any) {
	return r.Method + " " + r.URL.Path, nil
}

// NewClient returns a client that signs its requests as keyID of s and
// propagates trace context.
func NewClient(s signer.Signer, keyID string) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(&RoundTripper{Signer: s, KeyID: keyID}),
	}
}
