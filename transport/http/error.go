package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/storacha/go-didauth/didauth"
)

const InternalError = "INTERNAL_ERROR"

// HTTPError is an authentication failure as sent to, or received from, a
// client.
type HTTPError struct {
	Code    string      `json:"code"`
	Message string      `json:"message,omitempty"`
	Status  int         `json:"-"`
	Headers http.Header `json:"-"`
}

func (err *HTTPError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("%d %s", err.Status, err.Code)
	}
	return fmt.Sprintf("%d %s: %s", err.Status, err.Code, err.Message)
}

func (err *HTTPError) Name() string {
	return "HTTPError"
}

// NewHTTPError builds the response for a failed verification. Permission
// failures are 403, everything else the client can fix is 401.
func NewHTTPError(code didauth.ErrorCode) *HTTPError {
	status := http.StatusUnauthorized
	if code == didauth.InsufficientCapability {
		status = http.StatusForbidden
	}
	hdrs := http.Header{}
	hdrs.Set("WWW-Authenticate", didauth.Scheme)
	return &HTTPError{Code: string(code), Status: status, Headers: hdrs}
}

func writeError(w http.ResponseWriter, _ *http.Request, err *HTTPError) {
	for k, vs := range err.Headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(err)
}

// ReadError decodes an error response written by the middleware.
func ReadError(res *http.Response) *HTTPError {
	herr := &HTTPError{Status: res.StatusCode, Headers: res.Header}
	body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
	if err == nil {
		_ = json.Unmarshal(body, herr)
	}
	if herr.Code == "" {
		herr.Code = http.StatusText(res.StatusCode)
	}
	return herr
}
