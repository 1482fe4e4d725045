package cachedb

import (
	"encoding/binary"
	"fmt"
)

// Wire format (big-endian throughout; see spec §4.1):
//
//	| opcode : 1 byte | key_size : 2 bytes | key_bytes : key_size bytes |
//	                  | val_size : 2 bytes | val_bytes : val_size bytes |
//
// val_size and val_bytes are always present, even for opcodes that carry no
// value semantically (Pull, PullReplyNotFound, Terminate emit val_size=0
// and zero value bytes). This keeps the resumable parser a single state
// machine regardless of opcode.

// Opcode identifies the kind of frame on the wire. Numeric values are fixed
// by the protocol and must never change.
type Opcode uint8

const (
	// OpPull requests the value for a key. Client -> server. Carries a key
	// only; val_size is always 0.
	OpPull Opcode = 1
	// OpPush inserts a key/value pair. Client -> server. No reply.
	OpPush Opcode = 2
	// OpPullReply carries the value found for a prior Pull. Server -> client.
	OpPullReply Opcode = 3
	// OpPullReplyNotFound reports that the pulled key has no value. Server
	// -> client. Carries the requested key; val_size is always 0.
	OpPullReplyNotFound Opcode = 4
	// OpTerminate closes the connection cleanly. Either direction. Carries
	// neither a key nor a value.
	OpTerminate Opcode = 5
)

func (op Opcode) String() string {
	switch op {
	case OpPull:
		return "PULL"
	case OpPush:
		return "PUSH"
	case OpPullReply:
		return "PULL_REPLY"
	case OpPullReplyNotFound:
		return "PULL_REPLY_NOT_FOUND"
	case OpTerminate:
		return "TERMINATE"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(op))
	}
}

// carriesValue reports whether opcode op carries a value on the wire. Pull,
// PullReplyNotFound, and Terminate always emit val_size=0 regardless of any
// value the caller supplied to EncodeFrame.
func (op Opcode) carriesValue() bool {
	switch op {
	case OpPullReply, OpPush:
		return true
	default:
		return false
	}
}

// EncodeFrame builds the wire bytes for one frame: opcode, key, and
// (for value-carrying opcodes) value. For opcodes that do not carry a
// value, val is ignored and val_size=0 is emitted regardless of whether val
// is empty. Returns ErrSizeOverflow if either field's declared size exceeds
// 65535 bytes before anything is written.
func EncodeFrame(op Opcode, key, val []byte) ([]byte, error) {
	keySize, err := sizeOf(len(key))
	if err != nil {
		return nil, fmt.Errorf("cachedb: encode key: %w", err)
	}

	var valSize uint16
	carriesVal := op.carriesValue()
	if carriesVal {
		valSize, err = sizeOf(len(val))
		if err != nil {
			return nil, fmt.Errorf("cachedb: encode value: %w", err)
		}
	}

	total := 1 + 2 + int(keySize) + 2
	if carriesVal {
		total += int(valSize)
	}
	buf := make([]byte, total)
	buf[0] = byte(op)
	binary.BigEndian.PutUint16(buf[1:3], keySize)
	off := 3
	copy(buf[off:off+int(keySize)], key)
	off += int(keySize)
	binary.BigEndian.PutUint16(buf[off:off+2], valSize)
	off += 2
	if carriesVal {
		copy(buf[off:off+int(valSize)], val)
	}
	return buf, nil
}
