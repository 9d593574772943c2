package block

// Crop states: wheat, carrots and potatoes grow 0..7, beetroot 0..3. Crops
// survive only on farmland and advance growth on random ticks.

type cropKind struct {
	name      string
	maxGrowth uint8
}

var cropKinds = []cropKind{
	{"minecraft:wheat", 7},
	{"minecraft:carrots", 7},
	{"minecraft:potatoes", 7},
	{"minecraft:beetroot", 3},
}

var (
	crops      = map[string][]uint32{}
	cropStates = map[uint32]CropState{}
)

// CropState is the decoded identity of a crop block.
type CropState struct {
	Name      string
	Growth    uint8
	MaxGrowth uint8
}

func init() {
	for _, kind := range cropKinds {
		stages := make([]uint32, kind.maxGrowth+1)
		for g := uint8(0); g <= kind.maxGrowth; g++ {
			h := register(kind.name, map[string]any{"growth": int32(g)})
			stages[g] = h
			cropStates[h] = CropState{Name: kind.name, Growth: g, MaxGrowth: kind.maxGrowth}
		}
		crops[kind.name] = stages
	}
}

// Crop returns the state of the named crop at the growth stage given.
func Crop(name string, growth uint8) uint32 { return crops[name][growth] }

// CropAt decodes a crop state hash.
func CropAt(hash uint32) (CropState, bool) {
	s, ok := cropStates[hash]
	return s, ok
}

// IsLeaves reports whether the hash is a leaf block subject to decay.
func IsLeaves(hash uint32) bool { return name(hash) == "minecraft:oak_leaves" }

// IsLog reports whether the hash is a log block that sustains leaves.
func IsLog(hash uint32) bool { return name(hash) == "minecraft:oak_log" }
