package chunk

import (
	"hash/fnv"

	"github.com/sago-mc/bedrock/server/protocol"
)

// State is the canonical identity of a block: its namespaced name plus its
// property map. The server's internal identifier for a State is the 32-bit
// FNV-1a hash of its canonical network-NBT serialization; the State itself
// is only needed at the BDS interop boundary.
type State struct {
	Name       string
	Properties map[string]any
}

// Hash computes the state's 32-bit FNV-1a identity from the canonical
// network-NBT serialization of name + sorted properties. The NBT writer
// iterates compound keys in sorted order, making the serialization
// deterministic.
func (s State) Hash() uint32 {
	w := protocol.NewWriter()
	props := s.Properties
	if props == nil {
		props = map[string]any{}
	}
	protocol.NewNBTWriter(w, protocol.NetworkEncoding).WriteRootCompound("", map[string]any{
		"name":   s.Name,
		"states": props,
	})
	h := fnv.New32a()
	_, _ = h.Write(w.Bytes())
	return h.Sum32()
}

// registry is the process-wide hash ↔ State table. It is populated at
// init time by the block package's registration calls and extended at
// runtime only by BDS import, which may encounter upgraded states that were
// not pre-registered.
var registry = map[uint32]State{}

// RegisterState records the state in the hash ↔ identity table and returns
// its hash. Registering the same state twice is a no-op returning the same
// hash.
func RegisterState(s State) uint32 {
	h := s.Hash()
	if _, ok := registry[h]; !ok {
		registry[h] = s
	}
	return h
}

// LookupState resolves a block-state hash back to its canonical identity.
// The second return is false for hashes never registered; exporters fall
// back to air for those.
func LookupState(hash uint32) (State, bool) {
	s, ok := registry[hash]
	return s, ok
}

// AirHash is the identity of minecraft:air, the fill value of empty
// sections and the fallback for unknown states on export.
var AirHash = RegisterState(State{Name: "minecraft:air"})
