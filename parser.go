package cachedb

import (
	"encoding/binary"
	"fmt"
)

// segment names the five regions of a frame the parser tracks, per
// spec §4.7's state diagram:
//
//	OPCODE -1B-> KEY_SIZE -2B-> KEY -key_size B-> VAL_SIZE -2B-> VAL -val_size B-> (emit, back to OPCODE)
//	                          |
//	                          +- if key_size=0, skip KEY -> VAL_SIZE directly
//
// (and symmetrically for VAL_SIZE=0 skipping VAL).
type segment uint8

const (
	segOpcode segment = iota
	segKeySize
	segKey
	segValSize
	segVal
)

// Frame is one complete, decoded protocol message.
type Frame[K, V any] struct {
	Op  Opcode
	Key K
	// Val and HasVal are populated only when the frame's val_size was
	// nonzero on the wire; HasVal distinguishes a decoded value that
	// happens to equal V's zero value from "no value field was decoded at
	// all" (the val codec is never invoked for val_size=0, per spec §4.3
	// rule 5, so Val stays V's zero value and HasVal stays false).
	Val    V
	HasVal bool
}

// Parser is a resumable, stateful decoder: it consumes bytes handed to it
// across successive Feed calls (each call corresponding to one socket read)
// and emits zero or more complete Frames plus internally-retained state
// describing any incomplete frame still in flight. It never drops or
// double-counts a byte, and it requires no cooperation from the caller
// beyond "pass me the bytes you just read, in order" — unlike the teacher
// package's fixed-size carry buffer (which asks the caller to re-place
// leftover bytes at the front of the next read), this Parser owns its own
// accumulation buffers for the segment currently in flight, which is
// simpler in Go and bounded by the same 65535-byte field ceiling the wire
// format enforces elsewhere.
//
// A Parser is not safe for concurrent use; each connection (server side)
// or background reader (client side) owns exactly one.
type Parser[K, V any] struct {
	keyCodec Codec[K]
	valCodec Codec[V]

	seg segment
	op  Opcode

	// hdr/hdrFilled accumulate the 2-byte big-endian size fields
	// (key_size, val_size) across reads that split them.
	hdr       [2]byte
	hdrFilled int

	keySize uint16
	valSize uint16
	keyBuf  []byte
	valBuf  []byte
}

// NewParser constructs a Parser that decodes keys and values with the given
// codecs.
func NewParser[K, V any](keyCodec Codec[K], valCodec Codec[V]) *Parser[K, V] {
	return &Parser[K, V]{keyCodec: keyCodec, valCodec: valCodec, seg: segOpcode}
}

// Feed consumes data (bytes from one socket read) and returns every
// complete frame decoded as a result, in wire order. If data ends mid-frame,
// Feed returns the frames completed so far (possibly none) and retains the
// partial state internally for the next Feed call.
//
// If an unknown opcode or a codec decode failure is encountered, Feed
// returns the frames completed before the failure together with the error;
// the caller must treat this as fatal to the connection and stop feeding
// it (per spec §4.3: "the parser does not attempt resynchronization").
func (p *Parser[K, V]) Feed(data []byte) ([]Frame[K, V], error) {
	var frames []Frame[K, V]
	for len(data) > 0 {
		switch p.seg {
		case segOpcode:
			p.op = Opcode(data[0])
			data = data[1:]
			switch p.op {
			case OpPull, OpPush, OpPullReply, OpPullReplyNotFound, OpTerminate:
			default:
				return frames, fmt.Errorf("%w: opcode byte %d", ErrParse, uint8(p.op))
			}
			p.seg = segKeySize
			p.hdrFilled = 0

		case segKeySize:
			n := copy(p.hdr[p.hdrFilled:2], data)
			p.hdrFilled += n
			data = data[n:]
			if p.hdrFilled < 2 {
				return frames, nil
			}
			p.keySize = binary.BigEndian.Uint16(p.hdr[:2])
			p.hdrFilled = 0
			if p.keySize == 0 {
				p.keyBuf = nil
				p.seg = segValSize
			} else {
				p.keyBuf = make([]byte, 0, p.keySize)
				p.seg = segKey
			}

		case segKey:
			need := int(p.keySize) - len(p.keyBuf)
			n := need
			if n > len(data) {
				n = len(data)
			}
			p.keyBuf = append(p.keyBuf, data[:n]...)
			data = data[n:]
			if len(p.keyBuf) < int(p.keySize) {
				return frames, nil
			}
			p.seg = segValSize

		case segValSize:
			n := copy(p.hdr[p.hdrFilled:2], data)
			p.hdrFilled += n
			data = data[n:]
			if p.hdrFilled < 2 {
				return frames, nil
			}
			p.valSize = binary.BigEndian.Uint16(p.hdr[:2])
			p.hdrFilled = 0
			if p.valSize == 0 {
				p.valBuf = nil
				frame, err := p.emit()
				p.seg = segOpcode
				if err != nil {
					return frames, err
				}
				frames = append(frames, frame)
			} else {
				p.valBuf = make([]byte, 0, p.valSize)
				p.seg = segVal
			}

		case segVal:
			need := int(p.valSize) - len(p.valBuf)
			n := need
			if n > len(data) {
				n = len(data)
			}
			p.valBuf = append(p.valBuf, data[:n]...)
			data = data[n:]
			if len(p.valBuf) < int(p.valSize) {
				return frames, nil
			}
			frame, err := p.emit()
			p.seg = segOpcode
			if err != nil {
				return frames, err
			}
			frames = append(frames, frame)
		}
	}
	return frames, nil
}

// emit decodes the just-completed frame's key and value (skipping the
// codec entirely for zero-length fields, per spec §4.3 rule 5) and resets
// the frame-scoped buffers.
func (p *Parser[K, V]) emit() (Frame[K, V], error) {
	frame := Frame[K, V]{Op: p.op}

	if p.keySize > 0 {
		k, err := p.keyCodec.Decode(p.keyBuf)
		if err != nil {
			return frame, fmt.Errorf("%w: key: %v", ErrDecode, err)
		}
		frame.Key = k
	}
	if p.valSize > 0 {
		v, err := p.valCodec.Decode(p.valBuf)
		if err != nil {
			return frame, fmt.Errorf("%w: value: %v", ErrDecode, err)
		}
		frame.Val = v
		frame.HasVal = true
	}

	p.keyBuf = nil
	p.valBuf = nil
	return frame, nil
}
