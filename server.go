package cachedb

import (
	"fmt"
	"io"
	"net"
)

// Server holds the authoritative Store and serves it over the wire
// protocol, one goroutine per accepted connection (spec §4.4 and §6).
// Direct in-process access (Push/Get/Set) bypasses the wire entirely.
type Server[K, V any] struct {
	store    *Store[K, V]
	keyCodec Codec[K]
	valCodec Codec[V]
	opts     serverOptions
}

// NewServer constructs a Server backed by store, using keyCodec/valCodec to
// decode frames read from connections and encode replies written to them.
func NewServer[K, V any](store *Store[K, V], keyCodec Codec[K], valCodec Codec[V], opts ...ServerOption) *Server[K, V] {
	o := defaultServerOptions
	for _, fn := range opts {
		fn(&o)
	}
	return &Server[K, V]{store: store, keyCodec: keyCodec, valCodec: valCodec, opts: o}
}

// Push inserts directly into the store, bypassing the wire.
func (s *Server[K, V]) Push(key K, val V) { s.store.Push(key, val) }

// Get looks up directly in the store, bypassing the wire.
func (s *Server[K, V]) Get(key K) (V, bool) { return s.store.Get(key) }

// Set mutates an existing entry directly in the store, bypassing the wire.
func (s *Server[K, V]) Set(key K, val V) error { return s.store.Set(key, val) }

// Serve accepts connections from lis indefinitely, spawning one goroutine
// per connection. It returns only when Accept fails (e.g. the listener was
// closed); other connections are unaffected by any single connection's
// failure, and this method never exits on their account.
func (s *Server[K, V]) Serve(lis net.Listener) error {
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		s.opts.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("cachedb: accepted connection")
		go s.handleConn(conn)
	}
}

// handleConn is the per-connection request loop (spec §4.4): read into the
// buffer, feed the parser, and dispatch every frame it emits. A socket
// write error, a parse error, or a decode error all close this connection
// without affecting any other. An empty (zero-byte, nil-error) read is
// ignored and the loop continues; a short read that only partially fills
// the current segment is normal and simply stalls the parser until the
// next read.
func (s *Server[K, V]) handleConn(conn net.Conn) {
	defer conn.Close()
	log := s.opts.log.With().Str("remote", conn.RemoteAddr().String()).Logger()

	parser := NewParser[K, V](s.keyCodec, s.valCodec)
	buf := make([]byte, s.opts.readBufferSize)

	for {
		n, readErr := conn.Read(buf)
		if n > 0 {
			frames, parseErr := parser.Feed(buf[:n])
			for _, frame := range frames {
				if frame.Op == OpTerminate {
					log.Info().Msg("cachedb: connection terminated by peer")
					return
				}
				if err := s.dispatch(conn, frame); err != nil {
					log.Warn().Err(err).Msg("cachedb: closing connection")
					return
				}
			}
			if parseErr != nil {
				log.Warn().Err(parseErr).Msg("cachedb: closing connection")
				return
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				log.Info().Msg("cachedb: connection closed by peer")
				return
			}
			log.Warn().Err(readErr).Msg("cachedb: closing connection after read error")
			return
		}
	}
}

// dispatch applies one decoded frame to the store and, for Pull, writes the
// reply. The server always echoes the requesting frame's own key on both
// reply opcodes (spec §4.4/§9 Q4), rather than any key the store entry
// itself might carry.
func (s *Server[K, V]) dispatch(conn net.Conn, frame Frame[K, V]) error {
	switch frame.Op {
	case OpPush:
		s.store.Push(frame.Key, frame.Val)
		return nil

	case OpPull:
		keyBytes := s.keyCodec.Encode(frame.Key)
		var reply []byte
		var err error
		if val, ok := s.store.Get(frame.Key); ok {
			reply, err = EncodeFrame(OpPullReply, keyBytes, s.valCodec.Encode(val))
		} else {
			reply, err = EncodeFrame(OpPullReplyNotFound, keyBytes, nil)
		}
		if err != nil {
			return fmt.Errorf("%w: encoding reply: %v", ErrSizeOverflow, err)
		}
		if _, err := conn.Write(reply); err != nil {
			return fmt.Errorf("%w: writing reply: %v", ErrNetwork, err)
		}
		return nil

	default:
		// OpTerminate is handled by the caller before dispatch is reached;
		// anything else (a reply opcode arriving from a client, or any
		// opcode the parser let through but this direction never expects)
		// is a protocol violation.
		return fmt.Errorf("%w: unexpected opcode %s from peer", ErrParse, frame.Op)
	}
}
