package protocol_test

import (
	"reflect"
	"testing"

	"github.com/sago-mc/bedrock/server/protocol"
)

func TestItemStackRoundTripNoNBT(t *testing.T) {
	cases := []protocol.ItemStack{
		{RuntimeID: 0},
		{
			RuntimeID:      1,
			Count:          64,
			Metadata:       0,
			HasStackID:     true,
			StackNetworkID: 42,
			BlockRuntimeID: -1,
			CanPlaceOn:     []string{"minecraft:grass"},
			CanDestroy:     []string{"minecraft:dirt", "minecraft:stone"},
		},
		{
			RuntimeID:      5,
			Count:          1,
			BlockRuntimeID: 100,
			RawUserData:    []byte{1, 2, 3, 4},
		},
	}
	for _, it := range cases {
		w := protocol.NewWriter()
		protocol.WriteItemStack(w, it)
		r := protocol.NewReader(w.Bytes())
		got, err := protocol.ReadItemStack(r)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !reflect.DeepEqual(it, got) {
			t.Fatalf("round trip mismatch: want %#v got %#v", it, got)
		}
		if r.Len() != 0 {
			t.Fatalf("leftover bytes after decoding %#v", it)
		}
	}
}
