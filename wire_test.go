package cachedb_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/luickk/rustCacheDb"
)

func TestEncodeFrame_LengthInvariant(t *testing.T) {
	tests := []struct {
		name         string
		op           cachedb.Opcode
		key          []byte
		val          []byte
		carriesValue bool
	}{
		{"pull", cachedb.OpPull, []byte("asd"), nil, false},
		{"push", cachedb.OpPush, []byte("k"), []byte("v"), true},
		{"pull_reply", cachedb.OpPullReply, []byte("asd"), []byte("das"), true},
		{"pull_reply_not_found", cachedb.OpPullReplyNotFound, []byte("asd"), nil, false},
		{"terminate", cachedb.OpTerminate, nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := cachedb.EncodeFrame(tt.op, tt.key, tt.val)
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			want := 1 + 2 + len(tt.key) + 2
			if tt.carriesValue {
				want += len(tt.val)
			}
			if len(buf) != want {
				t.Fatalf("len=%d want=%d", len(buf), want)
			}
		})
	}
}

func TestEncodeFrame_NonValueOpcodesIgnoreSuppliedValue(t *testing.T) {
	buf, err := cachedb.EncodeFrame(cachedb.OpPull, []byte("asd"), []byte("should be dropped"))
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	// opcode(1) + key_size(2) + key(3) + val_size(2), val_size must be 0.
	if len(buf) != 1+2+3+2 {
		t.Fatalf("len=%d want=%d (value bytes must not be emitted)", len(buf), 1+2+3+2)
	}
	if buf[len(buf)-2] != 0 || buf[len(buf)-1] != 0 {
		t.Fatalf("val_size bytes = %v want [0 0]", buf[len(buf)-2:])
	}
}

func TestEncodeFrame_SizeOverflow(t *testing.T) {
	maxKey := strings.Repeat("a", 65535)
	if _, err := cachedb.EncodeFrame(cachedb.OpPull, []byte(maxKey), nil); err != nil {
		t.Fatalf("65535-byte key should encode, got: %v", err)
	}

	tooLong := strings.Repeat("a", 65536)
	_, err := cachedb.EncodeFrame(cachedb.OpPull, []byte(tooLong), nil)
	if !errors.Is(err, cachedb.ErrSizeOverflow) {
		t.Fatalf("err=%v want ErrSizeOverflow", err)
	}
}

func TestEncodeFrame_ZeroLengthFields(t *testing.T) {
	buf, err := cachedb.EncodeFrame(cachedb.OpTerminate, nil, nil)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	want := []byte{byte(cachedb.OpTerminate), 0, 0, 0, 0}
	if !bytes.Equal(buf, want) {
		t.Fatalf("got %v want %v", buf, want)
	}
}

func TestOpcode_String(t *testing.T) {
	if got := cachedb.OpPullReply.String(); got != "PULL_REPLY" {
		t.Fatalf("got %q", got)
	}
}
