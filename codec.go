package cachedb

import "fmt"

// maxFieldSize is the largest key or value size, in bytes, that the wire
// format can express: key_size and val_size are each transmitted as a
// big-endian uint16 (see doc.go).
const maxFieldSize = 1<<16 - 1

// Codec is the capability the core requires of any type used as a key or
// value: a declared size in bytes, a byte encoding, and a byte decoding.
// size() must equal len(encode()) for any value; this is an invariant the
// caller's codec must uphold (see codec_test.go for the generic property
// check).
//
// The core operates on opaque byte strings internally and never inspects T;
// Codec is realized here as a function-pointer table rather than a method
// set so that the same type can be decoded into distinct T's and so that
// built-in types (string, []byte) don't need method-set wrappers. This is
// the redesign spec.md §9 calls out explicitly: "a function-pointer table...
// where keys and values are always opaque byte strings and typed wrappers
// live in user code."
type Codec[T any] struct {
	// Size returns the encoded length of v in bytes, or ErrSizeOverflow if
	// it would exceed 65535.
	Size func(v T) (uint16, error)
	// Encode returns the wire bytes for v. len(Encode(v)) must equal the
	// value returned by Size(v).
	Encode func(v T) []byte
	// Decode parses b (exactly Size(v) bytes, as framed on the wire) into a
	// T, or returns ErrDecode (or a wrapped form of it) if b is malformed.
	Decode func(b []byte) (T, error)
}

// sizeOf is a small helper that turns an int-valued size into the wire's
// uint16, checking the 65535 ceiling shared by every Codec.
func sizeOf(n int) (uint16, error) {
	if n > maxFieldSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrSizeOverflow, n)
	}
	return uint16(n), nil
}

// StringCodec is a Codec[string] treating the value as raw UTF-8 bytes.
// Size is the byte length (not rune count), matching Encode/Decode exactly.
var StringCodec = Codec[string]{
	Size: func(v string) (uint16, error) { return sizeOf(len(v)) },
	Encode: func(v string) []byte {
		return []byte(v)
	},
	Decode: func(b []byte) (string, error) {
		return string(b), nil
	},
}

// BytesCodec is a Codec[[]byte] with identity encode/decode. The returned
// slice from Decode is a fresh copy; callers may mutate it freely.
var BytesCodec = Codec[[]byte]{
	Size: func(v []byte) (uint16, error) { return sizeOf(len(v)) },
	Encode: func(v []byte) []byte {
		out := make([]byte, len(v))
		copy(out, v)
		return out
	},
	Decode: func(b []byte) ([]byte, error) {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	},
}
