package cachedb

import "sync"

// KeyVal is a key/value pair, as pushed into a Store or returned from Pull.
type KeyVal[K, V any] struct {
	Key K
	Val V
}

// Store is the server's shared, concurrency-safe backing store. Per spec
// §4.5 it is an external collaborator with a minimal contract: push
// (insert/overwrite), get (lookup), and set (mutate an existing entry).
// Entries are created on push; a push for a key that is already stored
// (over the wire or in-process) replaces its value, as does the direct
// in-process Set. Entries are destroyed only on process exit.
//
// Grounded on the example pack's capacitor/pkg/cache/memory.Cache[K,V]: a
// generic, sync.RWMutex-guarded map. Unlike that cache, Store has no TTL or
// eviction — those are explicit Non-goals (spec §1) — and it is keyed by
// the key's *encoded byte representation* rather than requiring K to
// satisfy Go's `comparable` constraint, since caller key types are only
// guaranteed to satisfy Codec, not comparability (spec §9's "map keyed by
// a hash of the encoded key" redesign).
type Store[K, V any] struct {
	keyCodec Codec[K]

	mu   sync.RWMutex
	data map[string]KeyVal[K, V]
}

// NewStore constructs an empty Store. keyCodec is used only to compute the
// map key (the encoded key bytes); it need not be the same Codec instance
// used elsewhere, but it must encode equal keys identically.
func NewStore[K, V any](keyCodec Codec[K]) *Store[K, V] {
	return &Store[K, V]{
		keyCodec: keyCodec,
		data:     make(map[string]KeyVal[K, V]),
	}
}

func (s *Store[K, V]) keyString(key K) string {
	return string(s.keyCodec.Encode(key))
}

// Push inserts or overwrites the entry for key.
func (s *Store[K, V]) Push(key K, val V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[s.keyString(key)] = KeyVal[K, V]{Key: key, Val: val}
}

// Get looks up key, reporting whether it was found.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kv, ok := s.data[s.keyString(key)]
	return kv.Val, ok
}

// Set overwrites the value for an existing key, returning ErrKeyNotFound if
// key has never been pushed.
func (s *Store[K, V]) Set(key K, val V) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ks := s.keyString(key)
	if _, ok := s.data[ks]; !ok {
		return ErrKeyNotFound
	}
	s.data[ks] = KeyVal[K, V]{Key: key, Val: val}
	return nil
}

// Len reports the number of entries currently stored. Intended for tests
// and diagnostics, not part of the wire-facing contract.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
