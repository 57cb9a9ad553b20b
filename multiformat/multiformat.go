// Package multiformat implements the self-describing binary-to-text encoding
// used to embed key material and signatures in identity documents and
// headers.
//
// Key material is tagged with a multicodec varint identifying the key type
// and then multibase encoded, so the leading character identifies the base
// encoding and the first decoded bytes identify the key algorithm:
//
//	z6Mk...  base58btc( 0xed 0x01 || ed25519 public key )
package multiformat

import (
	"fmt"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"
	"github.com/storacha/go-didauth/failure"
)

// DefaultEncoding is the base encoding used when none is specified.
const DefaultEncoding = multibase.Base58BTC

// MalformedEncodingName is the failure name for decode errors.
const MalformedEncodingName = "MalformedEncoding"

// ErrMalformedEncoding matches every decode failure with [errors.Is].
var ErrMalformedEncoding = failure.Sentinel(MalformedEncodingName)

var supported = map[multicodec.Code]struct{}{
	multicodec.Identity:      {},
	multicodec.Ed25519Pub:    {},
	multicodec.Ed25519Priv:   {},
	multicodec.Secp256k1Pub:  {},
	multicodec.Secp256k1Priv: {},
	multicodec.P256Pub:       {},
	multicodec.P256Priv:      {},
	multicodec.RsaPub:        {},
	multicodec.RsaPriv:       {},
}

// Supported reports whether code may be used as a tag.
func Supported(code multicodec.Code) bool {
	_, ok := supported[code]
	return ok
}

// Tag prefixes b with the varint encoding of code.
func Tag(code multicodec.Code, b []byte) []byte {
	return append(varint.ToUvarint(uint64(code)), b...)
}

// Untag splits tagged bytes into the multicodec tag and the payload.
func Untag(b []byte) (multicodec.Code, []byte, error) {
	tag, n, err := varint.FromUvarint(b)
	if err != nil {
		return 0, nil, failure.Wrap(MalformedEncodingName, err, "reading multicodec tag")
	}
	return multicodec.Code(tag), b[n:], nil
}

// Encode tags b with code and encodes it with [DefaultEncoding].
func Encode(b []byte, code multicodec.Code) (string, error) {
	return EncodeWith(DefaultEncoding, b, code)
}

// EncodeWith tags b with code and encodes it with the given base encoding.
func EncodeWith(base multibase.Encoding, b []byte, code multicodec.Code) (string, error) {
	if !Supported(code) {
		return "", fmt.Errorf("unsupported multicodec tag: %s", code)
	}
	return multibase.Encode(base, Tag(code, b))
}

// Decode reverses [Encode] and [EncodeWith], returning the payload and its tag.
func Decode(s string) ([]byte, multicodec.Code, error) {
	raw, _, err := DecodeBytes(s)
	if err != nil {
		return nil, 0, err
	}
	code, payload, err := Untag(raw)
	if err != nil {
		return nil, 0, err
	}
	if !Supported(code) {
		return nil, 0, failure.New(MalformedEncodingName, fmt.Sprintf("unsupported multicodec tag: 0x%x", uint64(code)))
	}
	return payload, code, nil
}

// EncodeBytes multibase encodes b without a codec tag. Used for signature
// values.
func EncodeBytes(b []byte) string {
	s, _ := multibase.Encode(DefaultEncoding, b)
	return s
}

// DecodeBytes decodes an untagged multibase string.
func DecodeBytes(s string) ([]byte, multibase.Encoding, error) {
	if s == "" {
		return nil, 0, failure.New(MalformedEncodingName, "missing multibase prefix")
	}
	enc := multibase.Encoding(s[0])
	if _, ok := multibase.EncodingToStr[enc]; !ok {
		return nil, 0, failure.New(MalformedEncodingName, fmt.Sprintf("unrecognized multibase prefix %q", s[0]))
	}
	if len(s) == 1 {
		// some base decoders reject empty input, the empty payload is valid
		return []byte{}, enc, nil
	}
	enc, b, err := multibase.Decode(s)
	if err != nil {
		return nil, 0, failure.Wrap(MalformedEncodingName, err, "decoding multibase payload")
	}
	return b, enc, nil
}
