package cachedb_test

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/luickk/rustCacheDb"
)

func TestStore_PushGetSet(t *testing.T) {
	s := cachedb.NewStore[string, string](cachedb.StringCodec)

	if _, ok := s.Get("missing"); ok {
		t.Fatalf("expected miss on empty store")
	}

	s.Push("brian", "test")
	val, ok := s.Get("brian")
	if !ok || val != "test" {
		t.Fatalf("got (%q, %v), want (test, true)", val, ok)
	}

	if err := s.Set("brian", "updated"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok = s.Get("brian")
	if !ok || val != "updated" {
		t.Fatalf("got (%q, %v), want (updated, true)", val, ok)
	}

	if err := s.Set("never-pushed", "x"); !errors.Is(err, cachedb.ErrKeyNotFound) {
		t.Fatalf("Set on absent key: err=%v want ErrKeyNotFound", err)
	}
}

func TestStore_ConcurrentPushGet(t *testing.T) {
	s := cachedb.NewStore[string, string](cachedb.StringCodec)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Push(keyN(i), valN(i))
		}(i)
	}
	wg.Wait()

	if got := s.Len(); got != 50 {
		t.Fatalf("Len()=%d want 50", got)
	}
	for i := 0; i < 50; i++ {
		val, ok := s.Get(keyN(i))
		if !ok || val != valN(i) {
			t.Fatalf("Get(%s)=(%q,%v) want (%q,true)", keyN(i), val, ok, valN(i))
		}
	}
}

func keyN(i int) string { return "key" + strconv.Itoa(i) }
func valN(i int) string { return "val" + strconv.Itoa(i) }
