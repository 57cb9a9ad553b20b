// Package didauth implements request authentication with keys published in
// identity documents. A client signs an operation with a key it controls and
// sends the result in an Authorization header; a verifier resolves the
// signer's document, checks the signature, its freshness and its nonce.
package didauth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/storacha/go-didauth/canonical"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/multiformat"
	"github.com/storacha/go-didauth/signer"
)

// Scheme is the Authorization header scheme token. It is case sensitive.
const Scheme = "DIDAuth"

// NonceSize is the number of random bytes in a generated nonce.
const NonceSize = 16

type SignedData struct {
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params"`
	// Timestamp is in Unix seconds.
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
}

type Signature struct {
	SignerDID string `json:"signer_did"`
	KeyID     string `json:"key_id"`
	// Value is the multibase encoded signature over the canonical signed
	// data.
	Value string `json:"value"`
}

// SignedObject is an operation signed by an identity.
type SignedObject struct {
	SignedData SignedData `json:"signed_data"`
	Signature  Signature  `json:"signature"`
}

// CanonicalBytes returns the exact bytes that are signed.
func (s SignedData) CanonicalBytes() ([]byte, error) {
	if s.Params == nil {
		s.Params = map[string]any{}
	}
	return canonical.Marshal(s)
}

type signConfig struct {
	timestamp time.Time
	nonce     string
}

type SignOption func(*signConfig)

// WithTimestamp sets the signing time. Defaults to now.
func WithTimestamp(t time.Time) SignOption {
	return func(cfg *signConfig) {
		cfg.timestamp = t
	}
}

// WithNonce sets the nonce. Defaults to [NonceSize] random bytes, base64url
// encoded.
func WithNonce(nonce string) SignOption {
	return func(cfg *signConfig) {
		cfg.nonce = nonce
	}
}

// NewNonce returns a random nonce.
func NewNonce() (string, error) {
	b := make([]byte, NonceSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CreateSignature signs operation and params with keyID of s.
func CreateSignature(operation string, params map[string]any, s signer.Signer, keyID string, opts ...SignOption) (*SignedObject, error) {
	cfg := signConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timestamp.IsZero() {
		cfg.timestamp = time.Now()
	}
	if cfg.nonce == "" {
		n, err := NewNonce()
		if err != nil {
			return nil, err
		}
		cfg.nonce = n
	}
	if params == nil {
		params = map[string]any{}
	}

	data := SignedData{
		Operation: operation,
		Params:    params,
		Timestamp: cfg.timestamp.Unix(),
		Nonce:     cfg.nonce,
	}
	msg, err := data.CanonicalBytes()
	if err != nil {
		return nil, fmt.Errorf("canonicalizing signed data: %w", err)
	}
	owner := s.Owner()
	keyID = did.ResolveRef(owner, keyID)
	sig, err := s.SignWithKeyID(msg, keyID)
	if err != nil {
		return nil, err
	}
	return &SignedObject{
		SignedData: data,
		Signature: Signature{
			SignerDID: owner.String(),
			KeyID:     keyID,
			Value:     multiformat.EncodeBytes(sig),
		},
	}, nil
}

// ToAuthorizationHeader encodes obj as an Authorization header value.
func ToAuthorizationHeader(obj *SignedObject) (string, error) {
	if obj == nil {
		return "", errors.New("signed object is nil")
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("encoding signed object: %w", err)
	}
	return Scheme + " " + base64.RawURLEncoding.EncodeToString(b), nil
}

type wireSignedData struct {
	Operation *string         `json:"operation"`
	Params    json.RawMessage `json:"params"`
	Timestamp *json.Number    `json:"timestamp"`
	Nonce     *string         `json:"nonce"`
}

// parsed is a decoded header. raw holds the signed_data member exactly as
// received.
type parsed struct {
	obj *SignedObject
	raw json.RawMessage
}

// parseHeader performs the structural checks, up to and including the
// presence of a complete signature.
func parseHeader(header string) (*parsed, Result) {
	payload, ok := strings.CutPrefix(header, Scheme+" ")
	if !ok {
		return nil, fail(InvalidHeader, nil, nil)
	}
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, fail(InvalidBase64, nil, err)
	}
	return parsePayload(b)
}

func parsePayload(b []byte) (*parsed, Result) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil || top == nil {
		return nil, fail(InvalidJSON, nil, err)
	}
	raw, ok := top["signed_data"]
	if !ok {
		return nil, fail(InvalidJSON, nil, errors.New("missing signed_data"))
	}
	data, err := decodeSignedData(raw)
	if err != nil {
		return nil, fail(InvalidJSON, nil, err)
	}
	p := &parsed{obj: &SignedObject{SignedData: data}, raw: raw}

	rawSig, ok := top["signature"]
	if !ok || string(rawSig) == "null" {
		return p, fail(MissingSignature, p.obj, errors.New("missing signature"))
	}
	var sig Signature
	if err := json.Unmarshal(rawSig, &sig); err != nil {
		return p, fail(MissingSignature, p.obj, err)
	}
	p.obj.Signature = sig
	if err := checkSignature(sig); err != nil {
		return p, fail(MissingSignature, p.obj, err)
	}
	return p, Result{OK: true}
}

func decodeSignedData(raw json.RawMessage) (SignedData, error) {
	var wire wireSignedData
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return SignedData{}, err
	}
	if wire.Operation == nil || wire.Timestamp == nil || wire.Nonce == nil || wire.Params == nil {
		return SignedData{}, errors.New("signed_data requires operation, params, timestamp and nonce")
	}
	ts, err := wire.Timestamp.Int64()
	if err != nil {
		return SignedData{}, fmt.Errorf("timestamp must be an integer: %w", err)
	}
	var params map[string]any
	pdec := json.NewDecoder(strings.NewReader(string(wire.Params)))
	pdec.UseNumber()
	if err := pdec.Decode(&params); err != nil || params == nil {
		return SignedData{}, errors.New("params must be an object")
	}
	return SignedData{
		Operation: *wire.Operation,
		Params:    params,
		Timestamp: ts,
		Nonce:     *wire.Nonce,
	}, nil
}

// checkSignature requires every signature field. signer_did names a document,
// so it must be a bare DID; the key is named by key_id.
func checkSignature(sig Signature) error {
	if sig.SignerDID == "" || sig.KeyID == "" || sig.Value == "" {
		return errors.New("signature requires signer_did, key_id and value")
	}
	id, err := did.Parse(sig.SignerDID)
	if err != nil {
		return fmt.Errorf("parsing signer_did: %w", err)
	}
	if id.Fragment() != "" {
		return fmt.Errorf("signer_did must not have a fragment: %s", sig.SignerDID)
	}
	return nil
}
