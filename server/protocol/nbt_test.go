package protocol_test

import (
	"reflect"
	"testing"

	"github.com/sago-mc/bedrock/server/protocol"
)

func TestNBTRoundTripNetwork(t *testing.T) {
	body := map[string]any{
		"name":    "minecraft:stone",
		"version": int32(17879555),
		"states":  map[string]any{},
	}
	w := protocol.NewWriter()
	protocol.NewNBTWriter(w, protocol.NetworkEncoding).WriteRootCompound("", body)

	r := protocol.NewReader(w.Bytes())
	name, got, err := protocol.NewNBTReader(r, protocol.NetworkEncoding).ReadRootCompound()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if name != "" {
		t.Fatalf("expected empty root name, got %q", name)
	}
	if !reflect.DeepEqual(body, got) {
		t.Fatalf("round trip mismatch: want %#v got %#v", body, got)
	}
}

func TestNBTRoundTripDisk(t *testing.T) {
	body := map[string]any{
		"name": "minecraft:redstone_wire",
		"states": map[string]any{
			"redstone_signal": int32(5),
		},
		"version": int32(17879555),
	}
	w := protocol.NewWriter()
	protocol.NewNBTWriter(w, protocol.DiskEncoding).WriteRootCompound("root", body)

	r := protocol.NewReader(w.Bytes())
	name, got, err := protocol.NewNBTReader(r, protocol.DiskEncoding).ReadRootCompound()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if name != "root" {
		t.Fatalf("expected root name %q, got %q", "root", name)
	}
	if !reflect.DeepEqual(body, got) {
		t.Fatalf("round trip mismatch: want %#v got %#v", body, got)
	}
}
