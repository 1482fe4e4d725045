package cachedb

import (
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// pendingSlot is the client-side coordination point for one key: the last
// resolved value, whether the most recent reply was PULL_REPLY_NOT_FOUND,
// and a "ready" channel that the background reader closes to wake every
// waiter once a reply lands. Per spec §3/§4.6, it is shared between
// arbitrarily many waiting callers and the single background reader.
//
// This replaces the Rust reference's mutex+condvar pair with a channel
// that is replaced on every new request (armForRequest), which is the
// idiomatic Go realization of "broadcast to every current waiter" — no
// waiter needs to re-notify the next, unlike the single-notify pitfall
// spec §9 calls out.
type pendingSlot[V any] struct {
	mu       sync.RWMutex
	value    V
	notFound bool
	ready    chan struct{}
}

func newPendingSlot[V any]() *pendingSlot[V] {
	return &pendingSlot[V]{ready: make(chan struct{})}
}

// armForRequest installs a fresh ready channel for a new in-flight request
// and returns it. Must be called before the request is sent, by whichever
// caller singleflight selected to actually send it.
func (s *pendingSlot[V]) armForRequest() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = make(chan struct{})
	return s.ready
}

// resolve records a reply and wakes every waiter on the currently-armed
// ready channel. A PULL_REPLY (notFound=false) clears any prior sticky
// not_found state, per spec §9 Q2's decided answer. If the ready channel
// has already been closed by an earlier reply (no request is armed), the
// reply is ignored.
func (s *pendingSlot[V]) resolve(val V, notFound bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.ready:
		return
	default:
	}
	s.value = val
	s.notFound = notFound
	close(s.ready)
}

func (s *pendingSlot[V]) snapshot() (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.notFound
}

// PullResult is delivered on the channel returned by PullAsync.
type PullResult[V any] struct {
	Val V
	Err error
}

// Client is the request/response multiplexer for one TCP connection (spec
// §4.6): N concurrent callers invoking Push/Pull/PullAsync share the
// connection with one background reader goroutine that dispatches replies
// as they arrive, in whatever order the server produced them.
//
// Grounded on daabr-chrome-vision's pkg/cdp/session.go, which shares this
// exact shape (a map of pending requests consulted by a single dispatch
// goroutine reading off the wire); coalescing of concurrent Pull calls for
// the same key is delegated to golang.org/x/sync/singleflight.Group, the
// textbook tool for "merge identical concurrent work, fan the result out
// to every caller" (spec §4.6's coalescing rules, and the redesign spec §9
// recommends over single-notify condition signaling).
type Client[K, V any] struct {
	conn     net.Conn
	keyCodec Codec[K]
	valCodec Codec[V]
	opts     clientOptions

	writeMu sync.Mutex

	group singleflight.Group

	mu    sync.RWMutex
	slots map[string]*pendingSlot[V]

	closeOnce sync.Once
	closed    chan struct{}
	closeErr  error
}

// Connect dials addr over TCP and starts the background reader. Unlike the
// Rust reference's two-step connect()+start_reader() API, Connect performs
// both in one call: a client whose reader was never started can never
// observe a reply, so splitting the step only invites a use-after-misuse
// bug (documented in SPEC_FULL.md §6 as an intentional simplification).
func Connect[K, V any](addr string, keyCodec Codec[K], valCodec Codec[V], opts ...ClientOption) (*Client[K, V], error) {
	o := defaultClientOptions
	for _, fn := range opts {
		fn(&o)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNetwork, addr, err)
	}

	c := &Client[K, V]{
		conn:     conn,
		keyCodec: keyCodec,
		valCodec: valCodec,
		opts:     o,
		slots:    make(map[string]*pendingSlot[V]),
		closed:   make(chan struct{}),
	}
	o.log.Info().Str("addr", addr).Msg("cachedb: connected")
	go c.readLoop()
	return c, nil
}

func (c *Client[K, V]) getOrCreateSlot(keyStr string) *pendingSlot[V] {
	c.mu.RLock()
	slot, ok := c.slots[keyStr]
	c.mu.RUnlock()
	if ok {
		return slot
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if slot, ok := c.slots[keyStr]; ok {
		return slot
	}
	slot = newPendingSlot[V]()
	c.slots[keyStr] = slot
	return slot
}

func (c *Client[K, V]) sendFrame(op Opcode, key, val []byte) error {
	buf, err := EncodeFrame(op, key, val)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	_, err = c.conn.Write(buf)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return nil
}

// Push encodes and sends a PUSH frame. No acknowledgement is expected or
// awaited; it returns once the frame has been written.
func (c *Client[K, V]) Push(key K, val V) error {
	select {
	case <-c.closed:
		return ErrClientClosed
	default:
	}
	return c.sendFrame(OpPush, c.keyCodec.Encode(key), c.valCodec.Encode(val))
}

// Pull blocks until the value for key is known, the request times out
// (CLIENT_REQ_TIMEOUT, default 10s, see WithRequestTimeout), or the client
// is terminated. Per spec §4.6: if another caller's Pull for the same key
// is already in flight, no duplicate PULL frame is sent, and both callers
// receive the same reply once it arrives.
func (c *Client[K, V]) Pull(key K) (V, error) {
	var zero V
	select {
	case <-c.closed:
		return zero, ErrClientClosed
	default:
	}
	keyBytes := c.keyCodec.Encode(key)
	keyStr := string(keyBytes)
	slot := c.getOrCreateSlot(keyStr)

	v, err, _ := c.group.Do(keyStr, func() (any, error) {
		ready := slot.armForRequest()
		if err := c.sendFrame(OpPull, keyBytes, nil); err != nil {
			return zero, err
		}
		select {
		case <-ready:
			val, notFound := slot.snapshot()
			if notFound {
				return zero, ErrKeyNotFound
			}
			return val, nil
		case <-time.After(c.opts.requestTimeout):
			c.opts.log.Warn().Str("key", keyStr).Msg("cachedb: pull timed out")
			return zero, ErrNetworkTimeout
		case <-c.closed:
			return zero, ErrClientClosed
		}
	})
	if err != nil {
		return zero, err
	}
	return v.(V), nil
}

// PullAsync has identical semantics to Pull (including coalescing), except
// the result is delivered on the returned channel instead of blocking the
// caller.
func (c *Client[K, V]) PullAsync(key K) <-chan PullResult[V] {
	out := make(chan PullResult[V], 1)
	go func() {
		val, err := c.Pull(key)
		out <- PullResult[V]{Val: val, Err: err}
	}()
	return out
}

// Terminate sends a TERMINATE frame and closes the connection. Any pulls
// currently in flight are woken with ErrClientClosed.
func (c *Client[K, V]) Terminate() error {
	buf, _ := EncodeFrame(OpTerminate, nil, nil)
	c.writeMu.Lock()
	_, writeErr := c.conn.Write(buf)
	c.writeMu.Unlock()

	c.shutdown(ErrClientClosed)

	if writeErr != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, writeErr)
	}
	return nil
}

func (c *Client[K, V]) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closed)
		c.conn.Close()
	})
}

// readLoop is the background reader (spec §4.6): it owns the parser and
// the read side of the socket, and dispatches each decoded frame to the
// pending slot for its key. It never blocks on anything but the socket
// read and the slot-table lock, so it never serializes against callers
// writing Push/Pull requests.
func (c *Client[K, V]) readLoop() {
	parser := NewParser[K, V](c.keyCodec, c.valCodec)
	buf := make([]byte, c.opts.readBufferSize)

	for {
		n, readErr := c.conn.Read(buf)
		if n > 0 {
			frames, parseErr := parser.Feed(buf[:n])
			for _, frame := range frames {
				switch frame.Op {
				case OpPullReply:
					c.dispatchReply(frame.Key, frame.Val, false)
				case OpPullReplyNotFound:
					var zero V
					c.dispatchReply(frame.Key, zero, true)
				case OpTerminate:
					c.opts.log.Info().Msg("cachedb: terminated by server")
					c.shutdown(ErrClientClosed)
					return
				default:
					err := fmt.Errorf("%w: unexpected opcode %s from server", ErrParse, frame.Op)
					c.opts.log.Warn().Err(err).Msg("cachedb: closing connection")
					c.shutdown(err)
					return
				}
			}
			if parseErr != nil {
				c.opts.log.Warn().Err(parseErr).Msg("cachedb: closing connection")
				c.shutdown(parseErr)
				return
			}
		}
		if readErr != nil {
			c.opts.log.Info().Err(readErr).Msg("cachedb: background reader exiting")
			c.shutdown(fmt.Errorf("%w: %v", ErrNetwork, readErr))
			return
		}
	}
}

func (c *Client[K, V]) dispatchReply(key K, val V, notFound bool) {
	keyStr := string(c.keyCodec.Encode(key))
	c.mu.RLock()
	slot, ok := c.slots[keyStr]
	c.mu.RUnlock()
	if !ok {
		// A reply for a key nobody is (or is still) waiting on: ignore it.
		return
	}
	slot.resolve(val, notFound)
}
