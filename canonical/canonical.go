// Package canonical produces the deterministic JSON encoding that signers and
// verifiers must both reproduce byte for byte: object members sorted by their
// UTF-16 code units, no insignificant whitespace and ECMAScript number
// formatting (RFC 8785).
package canonical

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"
)

var ErrInvalidJSON = errors.New("invalid JSON")

// Marshal encodes v as JSON and canonicalizes the result.
func Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return Transform(b)
}

// Transform canonicalizes a JSON document. Trailing data, duplicate object
// members and numbers outside the IEEE-754 double range are rejected.
func Transform(input []byte) ([]byte, error) {
	// jcs accepts some malformed scalars, so the document is checked first.
	if !json.Valid(input) {
		return nil, ErrInvalidJSON
	}
	out, err := jcs.Transform(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return out, nil
}
