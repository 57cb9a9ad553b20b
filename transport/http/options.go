package http

import (
	"net/http"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/go-didauth/capability"
)

// Option is an option configuring the authentication middleware.
type Option func(cfg *middlewareConfig)

type middlewareConfig struct {
	refresh  bool
	action   capability.Action
	optional bool
	onError  func(w http.ResponseWriter, r *http.Request, err *HTTPError)
	log      *logging.ZapEventLogger
}

// WithRefresh retries verification once against a freshly resolved document
// when the cached one does not contain the signing key.
func WithRefresh() Option {
	return func(cfg *middlewareConfig) {
		cfg.refresh = true
	}
}

// WithAction requires the signing key to hold the relationship the action
// needs. It takes precedence over [WithRefresh].
func WithAction(action capability.Action) Option {
	return func(cfg *middlewareConfig) {
		cfg.action = action
	}
}

// WithOptional lets requests without an Authorization header through
// unauthenticated. Requests that carry a header are still verified.
func WithOptional() Option {
	return func(cfg *middlewareConfig) {
		cfg.optional = true
	}
}

// WithErrorHandler replaces the default JSON error response.
func WithErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err *HTTPError)) Option {
	return func(cfg *middlewareConfig) {
		cfg.onError = fn
	}
}

func WithLogger(l *logging.ZapEventLogger) Option {
	return func(cfg *middlewareConfig) {
		cfg.log = l
	}
}
