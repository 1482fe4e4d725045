package cachedb

import (
	"time"

	"github.com/rs/zerolog"
)

// Functional-option configuration, in the teacher package's style: an
// unexported options struct, a package-level default, an Option function
// type, and a family of With... constructors. Full CLI/env-var
// configuration loading is explicitly out of scope for this core (spec
// §1) — that is the embedder's bootstrap concern, not this package's.

// defaultReadBufferSize is the fixed read-buffer size used by both the
// server connection loop and the client's background reader, per spec
// §4.3 rule 6 ("the reference implementation uses 1024 bytes"). A frame
// larger than this buffer still parses correctly because key/value bytes
// are consumed incrementally segment by segment.
const defaultReadBufferSize = 1024

// defaultRequestTimeout is CLIENT_REQ_TIMEOUT from spec §4.6 step 5.
const defaultRequestTimeout = 10 * time.Second

type serverOptions struct {
	readBufferSize int
	log            zerolog.Logger
}

var defaultServerOptions = serverOptions{
	readBufferSize: defaultReadBufferSize,
	log:            defaultLogger(),
}

// ServerOption configures a Server constructed by NewServer.
type ServerOption func(*serverOptions)

// WithServerReadBufferSize overrides the fixed per-connection read buffer
// size (default 1024 bytes).
func WithServerReadBufferSize(n int) ServerOption {
	return func(o *serverOptions) { o.readBufferSize = n }
}

// WithServerLogger attaches a zerolog.Logger for connection lifecycle and
// per-connection error events. The default is zerolog.Nop() (silent).
func WithServerLogger(log zerolog.Logger) ServerOption {
	return func(o *serverOptions) { o.log = log }
}

type clientOptions struct {
	readBufferSize int
	requestTimeout time.Duration
	log            zerolog.Logger
}

var defaultClientOptions = clientOptions{
	readBufferSize: defaultReadBufferSize,
	requestTimeout: defaultRequestTimeout,
	log:            defaultLogger(),
}

// ClientOption configures a Client constructed by Connect.
type ClientOption func(*clientOptions)

// WithClientReadBufferSize overrides the background reader's fixed read
// buffer size (default 1024 bytes).
func WithClientReadBufferSize(n int) ClientOption {
	return func(o *clientOptions) { o.readBufferSize = n }
}

// WithRequestTimeout overrides CLIENT_REQ_TIMEOUT, the duration a blocking
// Pull (or PullAsync's returned handle) waits for a reply before returning
// ErrNetworkTimeout (default 10s).
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(o *clientOptions) { o.requestTimeout = d }
}

// WithClientLogger attaches a zerolog.Logger for connect, terminate,
// pull-timeout, and background-reader error events. The default is
// zerolog.Nop() (silent).
func WithClientLogger(log zerolog.Logger) ClientOption {
	return func(o *clientOptions) { o.log = log }
}
