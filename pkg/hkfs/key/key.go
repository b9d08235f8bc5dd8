/*
Package key defines content keys and their canonical string form.

A Key is the raw digest of an object's bytes. Its string form is the URL-safe
base64 encoding with padding stripped, so it can be used both as a file name
and as a path component without escaping. Padding is restored from the length
of the encoded string on decoding.
*/
package key

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Key is a content digest.
type Key []byte

// ErrInvalidEncoding is returned when a string is not a valid encoded key.
var ErrInvalidEncoding = errors.New("invalid key encoding")

// Strict mode rejects strings with non-zero trailing bits, so every key has
// exactly one string form.
var encoding = base64.URLEncoding.Strict()

// Encode returns canonical string form of k.
func Encode(k Key) string {
	return strings.TrimRight(encoding.EncodeToString(k), "=")
}

// Decode parses the string produced by Encode.
func Decode(s string) (Key, error) {
	var pad int
	switch len(s) % 4 {
	case 0:
	case 2:
		pad = 2
	case 3:
		pad = 1
	default:
		return nil, fmt.Errorf("%w: length %d", ErrInvalidEncoding, len(s))
	}
	if strings.ContainsRune(s, '=') {
		return nil, fmt.Errorf("%w: unexpected padding in %q", ErrInvalidEncoding, s)
	}

	k, err := encoding.DecodeString(s + strings.Repeat("=", pad))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEncoding, err)
	}
	return k, nil
}

// DecodeSized is like Decode, but also requires the result to be exactly size
// bytes long.
func DecodeSized(s string, size int) (Key, error) {
	k, err := Decode(s)
	if err != nil {
		return nil, err
	}
	if len(k) != size {
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", ErrInvalidEncoding, len(k), size)
	}
	return k, nil
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return Encode(k)
}

// Hex returns hex form of the key, the one printed by common digest tools.
func (k Key) Hex() string {
	return hex.EncodeToString(k)
}

// Equal reports whether k and o are the same digest.
func (k Key) Equal(o Key) bool {
	return bytes.Equal(k, o)
}
