// Package http authenticates HTTP requests carrying DIDAuth Authorization
// headers, and signs outgoing requests.
package http

import (
	"context"
	"errors"
	"net/http"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/go-didauth/didauth"
	"github.com/storacha/go-didauth/resolver"
)

var log = logging.Logger("transport/http")

type resultKey struct{}

// FromContext returns the verification result stored by [Middleware].
func FromContext(ctx context.Context) (didauth.Result, bool) {
	res, ok := ctx.Value(resultKey{}).(didauth.Result)
	return res, ok
}

// WithResult returns a copy of ctx carrying res.
func WithResult(ctx context.Context, res didauth.Result) context.Context {
	return context.WithValue(ctx, resultKey{}, res)
}

// Middleware verifies the Authorization header of every request. Verified
// requests reach next with the result in their context; the rest are
// answered with a JSON error naming the failure code.
func Middleware(v *didauth.Verifier, options ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(options)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, herr := authenticate(r, v, cfg)
			if herr != nil {
				cfg.onError(w, r, herr)
				return
			}
			if res.OK {
				r = r.WithContext(WithResult(r.Context(), res))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newConfig(options []Option) middlewareConfig {
	cfg := middlewareConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.onError == nil {
		cfg.onError = writeError
	}
	if cfg.log == nil {
		cfg.log = log
	}
	return cfg
}

// Authenticate verifies the Authorization header of r. It returns the error
// response to send when the request must be rejected. An anonymous request
// allowed by [WithOptional] yields a zero result and no error.
func Authenticate(r *http.Request, v *didauth.Verifier, options ...Option) (didauth.Result, *HTTPError) {
	return authenticate(r, v, newConfig(options))
}

func authenticate(r *http.Request, v *didauth.Verifier, cfg middlewareConfig) (didauth.Result, *HTTPError) {
	header := r.Header.Get("Authorization")
	if header == "" && cfg.optional {
		return didauth.Result{}, nil
	}

	res, err := verify(r.Context(), v, cfg, header)
	if err != nil {
		if errors.Is(err, resolver.ErrNoBackendForMethod) {
			return res, NewHTTPError(didauth.DIDDocumentNotFound)
		}
		cfg.log.Errorw("verifying request", "path", r.URL.Path, "error", err)
		return res, &HTTPError{Code: InternalError, Status: http.StatusInternalServerError}
	}
	if !res.OK {
		cfg.log.Debugw("rejected request", "path", r.URL.Path, "code", res.Code, "signer", res.SignerDID)
		return res, NewHTTPError(res.Code)
	}
	return res, nil
}

func verify(ctx context.Context, v *didauth.Verifier, cfg middlewareConfig, header string) (didauth.Result, error) {
	switch {
	case cfg.action != "":
		return v.VerifyForAction(ctx, header, cfg.action)
	case cfg.refresh:
		return v.VerifyAuthHeaderWithRefresh(ctx, header)
	default:
		return v.VerifyAuthHeader(ctx, header)
	}
}
