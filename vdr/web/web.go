// Package web resolves did:web identities by fetching did.json over HTTPS.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/resolver"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var log = logging.Logger("vdr/web")

const (
	Method = "web"
	// DefaultMaxBodySize limits the size of a fetched document.
	DefaultMaxBodySize = 1 << 20
	DefaultTimeout     = 10 * time.Second
)

var ErrDocumentTooLarge = errors.New("did document exceeds size limit")

// Backend fetches did:web documents.
type Backend struct {
	client      *http.Client
	scheme      string
	maxBodySize int64
}

var _ resolver.Backend = (*Backend)(nil)

type Option func(*Backend)

// WithHTTPClient sets the client used for fetches. Its transport is wrapped
// for tracing.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) {
		b.client = c
	}
}

// WithInsecure fetches documents over plain HTTP. For development only.
func WithInsecure() Option {
	return func(b *Backend) {
		b.scheme = "http"
	}
}

func WithMaxBodySize(n int64) Option {
	return func(b *Backend) {
		b.maxBodySize = n
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		client:      &http.Client{Timeout: DefaultTimeout},
		scheme:      "https",
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(b)
	}
	client := *b.client
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = otelhttp.NewTransport(base)
	b.client = &client
	return b
}

func (b *Backend) Method() string {
	return Method
}

// URL returns the location of the document for id.
func (b *Backend) URL(id did.DID) (string, error) {
	if id.Method() != Method {
		return "", fmt.Errorf("not a did:web: %s", id)
	}
	segments := strings.Split(id.WithoutFragment().Identifier(), ":")
	for i, s := range segments {
		decoded, err := url.PathUnescape(s)
		if err != nil {
			return "", fmt.Errorf("invalid did:web segment %q: %w", s, err)
		}
		if decoded == "" {
			return "", fmt.Errorf("empty did:web segment in %s", id)
		}
		segments[i] = decoded
	}
	host := segments[0]
	if strings.ContainsAny(host, "/?#@") {
		return "", fmt.Errorf("invalid did:web host: %q", host)
	}
	path := "/.well-known/did.json"
	if len(segments) > 1 {
		path = "/" + strings.Join(segments[1:], "/") + "/did.json"
	}
	u := url.URL{Scheme: b.scheme, Host: host, Path: path}
	return u.String(), nil
}

// Resolve fetches and validates the document. A 404 or 410 response means
// the identity does not exist.
func (b *Backend) Resolve(ctx context.Context, id did.DID) (*document.Document, error) {
	id = id.WithoutFragment()
	u, err := b.URL(id)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/did+json, application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusGone:
		log.Debugw("document not found", "did", id.String(), "status", res.StatusCode)
		return nil, nil
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, fmt.Errorf("fetching %s: unexpected status %d", u, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, b.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	if int64(len(body)) > b.maxBodySize {
		return nil, ErrDocumentTooLarge
	}
	doc, err := document.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", u, err)
	}
	if doc.ID.String() != id.String() {
		return nil, fmt.Errorf("document id %s does not match %s", doc.ID, id)
	}
	return doc, nil
}

func (b *Backend) Exists(ctx context.Context, id did.DID) (bool, error) {
	doc, err := b.Resolve(ctx, id)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}
