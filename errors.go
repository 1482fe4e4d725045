package cachedb

import "errors"

// Sentinel errors returned by this package's public API. Callers should use
// errors.Is against these values; the concrete error returned from an
// operation is frequently wrapped with additional context via fmt.Errorf's
// %w verb.
var (
	// ErrKeyNotFound is returned by Pull/PullAsync when the server reports
	// PULL_REPLY_NOT_FOUND for the requested key, and by Store.Set when the
	// key does not already exist.
	ErrKeyNotFound = errors.New("cachedb: key not found")

	// ErrSizeOverflow is returned by EncodeFrame (and surfaced from Push)
	// when a key's or value's declared Size() exceeds the 16-bit wire
	// limit (65535 bytes).
	ErrSizeOverflow = errors.New("cachedb: size exceeds 65535 bytes")

	// ErrParse is returned by the parser, and propagated by the server
	// connection loop and client reader, when an unrecognized opcode byte
	// is encountered on the wire. It is fatal to the connection.
	ErrParse = errors.New("cachedb: unknown opcode")

	// ErrDecode is returned when a caller-supplied Codec's Decode function
	// rejects the bytes read for a key or value. It is fatal to the
	// connection it occurred on.
	ErrDecode = errors.New("cachedb: decode rejected frame payload")

	// ErrNetwork wraps underlying socket read/write failures.
	ErrNetwork = errors.New("cachedb: network error")

	// ErrNetworkTimeout is returned by Pull/PullAsync when no reply arrives
	// within the configured request timeout.
	ErrNetworkTimeout = errors.New("cachedb: request timed out")

	// ErrClientClosed is returned to any pending or future caller once
	// Terminate has been called on a Client.
	ErrClientClosed = errors.New("cachedb: client terminated")
)
