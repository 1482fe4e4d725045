package cachedb_test

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/luickk/rustCacheDb"
)

func dialClient(t *testing.T, lis net.Listener, opts ...cachedb.ClientOption) *cachedb.Client[string, string] {
	t.Helper()
	cl, err := cachedb.Connect[string, string](lis.Addr().String(), cachedb.StringCodec, cachedb.StringCodec, opts...)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return cl
}

func TestClient_PushThenPull(t *testing.T) {
	_, lis := newTestServer(t)
	cl := dialClient(t, lis)
	defer cl.Terminate()

	if err := cl.Push("brian", "test"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	val, err := cl.Pull("brian")
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}
	if val != "test" {
		t.Fatalf("got %q want test", val)
	}
}

func TestClient_PullUnknownKey(t *testing.T) {
	_, lis := newTestServer(t)
	cl := dialClient(t, lis)
	defer cl.Terminate()

	_, err := cl.Pull("nope")
	if !errors.Is(err, cachedb.ErrKeyNotFound) {
		t.Fatalf("err=%v want ErrKeyNotFound", err)
	}
}

// TestClient_CoalescedConcurrentPull is grounded on the Rust reference's
// client_test_single_key test: two goroutines each call Pull on the same
// key hundreds of times concurrently against a server holding a single
// value for that key. Every call must return the correct value, and the
// coalescing must not corrupt or deadlock the shared in-flight request.
func TestClient_CoalescedConcurrentPull(t *testing.T) {
	srv, lis := newTestServer(t)
	srv.Push("key2", "valX")

	cl := dialClient(t, lis)
	defer cl.Terminate()

	const perGoroutine = 499
	var wg sync.WaitGroup
	errs := make(chan error, perGoroutine*2)

	run := func() {
		defer wg.Done()
		for i := 0; i < perGoroutine; i++ {
			val, err := cl.Pull("key2")
			if err != nil {
				errs <- err
				return
			}
			if val != "valX" {
				errs <- fmt.Errorf("got %q want valX", val)
				return
			}
		}
	}

	wg.Add(2)
	go run()
	go run()
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent pull: %v", err)
	}
}

func TestClient_PullAsync(t *testing.T) {
	srv, lis := newTestServer(t)
	srv.Push("async", "value")

	cl := dialClient(t, lis)
	defer cl.Terminate()

	ch := cl.PullAsync("async")
	select {
	case res := <-ch:
		if res.Err != nil {
			t.Fatalf("PullAsync: %v", res.Err)
		}
		if res.Val != "value" {
			t.Fatalf("got %q want value", res.Val)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("PullAsync timed out")
	}
}

// TestClient_PullTimeout checks that a request to a peer that never
// replies surfaces as a timeout rather than hanging forever.
func TestClient_PullTimeout(t *testing.T) {
	lis := mustListen(t)
	defer lis.Close()

	// Accept the connection but never answer any frame.
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		buf := make([]byte, 1024)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	cl := dialClient(t, lis, cachedb.WithRequestTimeout(100*time.Millisecond))
	defer cl.Terminate()

	_, err := cl.Pull("anything")
	if !errors.Is(err, cachedb.ErrNetworkTimeout) {
		t.Fatalf("err=%v want ErrNetworkTimeout", err)
	}
}

// TestClient_TerminateWakesPendingPulls checks that in-flight Pull calls
// are released with ErrClientClosed when Terminate is called concurrently,
// rather than blocking forever.
func TestClient_TerminateWakesPendingPulls(t *testing.T) {
	lis := mustListen(t)
	defer lis.Close()

	ready := make(chan struct{})
	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		close(ready)
		buf := make([]byte, 1024)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
			// Never reply, forcing the client to wait indefinitely
			// until Terminate releases it.
		}
	}()

	cl := dialClient(t, lis, cachedb.WithRequestTimeout(10*time.Second))

	var wg sync.WaitGroup
	wg.Add(1)
	var pullErr error
	go func() {
		defer wg.Done()
		_, pullErr = cl.Pull("stuck")
	}()

	<-ready
	time.Sleep(20 * time.Millisecond)
	if err := cl.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Pull did not unblock after Terminate")
	}
	if !errors.Is(pullErr, cachedb.ErrClientClosed) {
		t.Fatalf("pullErr=%v want ErrClientClosed", pullErr)
	}
}
