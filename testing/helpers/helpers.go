package helpers

import (
	crand "crypto/rand"
	"encoding/hex"
)

// Must takes return values from a function and returns the non-error one. If
// the error value is non-nil then it panics.
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

func RandomBytes(size int) []byte {
	bytes := make([]byte, size)
	_, _ = crand.Read(bytes)
	return bytes
}

// FlipByte returns a copy of b with the byte at index i inverted.
func FlipByte(b []byte, i int) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	out[i] ^= 0xff
	return out
}

// RandomString returns a random lowercase hex string of n bytes of entropy.
func RandomString(n int) string {
	return hex.EncodeToString(RandomBytes(n))
}
