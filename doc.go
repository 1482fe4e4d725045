// Package cachedb implements an in-memory key/value cache accessed over a
// custom length-prefixed binary protocol carried on a single persistent TCP
// connection. A Server process holds the authoritative Store; one or more
// Client processes connect, issue Push (insert) and Pull (lookup)
// operations, and receive asynchronous replies. Keys and values are
// caller-defined types constrained only by the Codec capability (byte
// encoding, byte decoding, and a declared size in bytes).
//
// Wire format (big-endian throughout):
//
//	| opcode : 1 byte | key_size : 2 bytes | key_bytes : key_size bytes |
//	                  | val_size : 2 bytes | val_bytes : val_size bytes |
//
// val_size and val_bytes are always present, even for opcodes that carry
// no value semantically: a Pull request emits val_size=0 and zero value
// bytes. This keeps Parser a single state machine regardless of opcode.
// See wire.go for the fixed opcode assignment.
//
// The three hardest pieces are:
//
//   - Parser (parser.go): a resumable stream decoder that tolerates
//     arbitrary TCP segment boundaries — one logical frame may arrive
//     across many reads, and one read may contain several frames plus a
//     trailing partial frame. It keeps explicit state across Feed calls.
//   - Client (client.go): a request/response multiplexer. Replies arrive
//     asynchronously in the order the server processed them, not
//     necessarily the order callers called Pull. Concurrent Pull calls for
//     the same key are coalesced into a single on-the-wire request.
//   - Server (server.go): the per-connection request loop that consumes
//     the same Parser, dispatches Push/Pull against a shared Store, and
//     writes correctly framed replies.
//
// Out of scope: persistence, replication, eviction, TTL, authentication,
// transport encryption, flow control beyond TCP, schema versioning, and
// listener/CLI bootstrap beyond net.Listen/net.Dial.
package cachedb
