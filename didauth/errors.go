package didauth

import (
	"fmt"

	"github.com/storacha/go-didauth/document"
)

// ErrorCode identifies why a verification failed. Codes are stable and safe
// to return to clients.
type ErrorCode string

const (
	InvalidHeader               ErrorCode = "INVALID_HEADER"
	InvalidBase64               ErrorCode = "INVALID_BASE64"
	InvalidJSON                 ErrorCode = "INVALID_JSON"
	MissingSignature            ErrorCode = "MISSING_SIGNATURE"
	TimestampOutOfWindow        ErrorCode = "TIMESTAMP_OUT_OF_WINDOW"
	NonceReplayed               ErrorCode = "NONCE_REPLAYED"
	DIDDocumentNotFound         ErrorCode = "DID_DOCUMENT_NOT_FOUND"
	DIDMismatch                 ErrorCode = "DID_MISMATCH"
	VerificationMethodNotFound  ErrorCode = "VERIFICATION_METHOD_NOT_FOUND"
	InvalidPublicKey            ErrorCode = "INVALID_PUBLIC_KEY"
	SignatureVerificationFailed ErrorCode = "SIGNATURE_VERIFICATION_FAILED"
	// InsufficientCapability is a permission failure: the signature is valid
	// but the key lacks the required verification relationship.
	InsufficientCapability ErrorCode = "INSUFFICIENT_CAPABILITY"
)

// Result is the outcome of a verification. Failures carry a code and, for
// every failure after the payload was decoded, the signed object itself.
type Result struct {
	OK        bool
	Code      ErrorCode
	SignerDID string
	KeyID     string
	Object    *SignedObject
	// Document is the resolved document of the signer, when resolution got
	// that far.
	Document *document.Document
	// Cause is the underlying failure, for logs only.
	Cause error
}

// Err returns nil for a successful result and a *VerificationError otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &VerificationError{Code: r.Code, Cause: r.Cause}
}

type VerificationError struct {
	Code  ErrorCode
	Cause error
}

// Error reports only the code so that crypto failure text never reaches
// clients.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %s", e.Code)
}

func (e *VerificationError) Unwrap() error {
	return e.Cause
}

func fail(code ErrorCode, obj *SignedObject, cause error) Result {
	r := Result{Code: code, Object: obj, Cause: cause}
	if obj != nil {
		r.SignerDID = obj.Signature.SignerDID
		r.KeyID = obj.Signature.KeyID
	}
	return r
}
