package protocol_test

import (
	"math"
	"testing"

	"github.com/sago-mc/bedrock/server/protocol"
)

func TestVarInt32RoundTrip(t *testing.T) {
	values := []int32{0, 1, -1, 63, -64, 127, -128, 1000000, -1000000, math.MaxInt32, math.MinInt32}
	for _, v := range values {
		w := protocol.NewWriter()
		protocol.WriteVarInt32(w, v)
		r := protocol.NewReader(w.Bytes())
		got, err := protocol.ReadVarInt32(r)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: want %d got %d", v, got)
		}
		if r.Len() != 0 {
			t.Fatalf("leftover bytes after decoding %d", v)
		}
	}
}

func TestVarUint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 1 << 20, math.MaxUint32}
	for _, v := range values {
		w := protocol.NewWriter()
		protocol.WriteVarUint32(w, v)
		r := protocol.NewReader(w.Bytes())
		got, err := protocol.ReadVarUint32(r)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: want %d got %d", v, got)
		}
	}
}

func TestVarInt64RoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, math.MaxInt64, math.MinInt64}
	for _, v := range values {
		w := protocol.NewWriter()
		protocol.WriteVarInt64(w, v)
		r := protocol.NewReader(w.Bytes())
		got, err := protocol.ReadVarInt64(r)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: want %d got %d", v, got)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	values := []string{"", "hello", "Alice", "minecraft:stone"}
	for _, v := range values {
		w := protocol.NewWriter()
		protocol.WriteString(w, v)
		r := protocol.NewReader(w.Bytes())
		got, err := protocol.ReadString(r)
		if err != nil {
			t.Fatalf("decode %q: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: want %q got %q", v, got)
		}
	}
}
