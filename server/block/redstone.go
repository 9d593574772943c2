package block

// Redstone component states: wire at 16 power levels, torches in both lit
// states across five attachments, repeaters across direction × delay ×
// powered, and the lever power source.

var (
	wireByPower [16]uint32
	wirePowers  = map[uint32]uint8{}
)

// torchFacings are the values of the torch_facing_direction property. The
// attachment block sits on the opposite side: a torch facing "top" stands
// on the block below it.
var torchFacings = [5]string{"top", "north", "south", "west", "east"}

var (
	litTorches   = map[string]uint32{}
	unlitTorches = map[string]uint32{}
	torchStates  = map[uint32]torchState{}
)

type torchState struct {
	lit    bool
	facing string
}

type repeaterKey struct {
	direction Face
	delay     uint8
}

var (
	poweredRepeaters   = map[repeaterKey]uint32{}
	unpoweredRepeaters = map[repeaterKey]uint32{}
	repeaterStates     = map[uint32]RepeaterState{}
)

// RepeaterState is the decoded identity of a repeater block.
type RepeaterState struct {
	Powered   bool
	Direction Face
	Delay     uint8
}

var (
	leverOn  uint32
	leverOff uint32
)

func init() {
	for p := 0; p < 16; p++ {
		h := register("minecraft:redstone_wire", map[string]any{"redstone_signal": int32(p)})
		wireByPower[p] = h
		wirePowers[h] = uint8(p)
	}
	for _, facing := range torchFacings {
		lit := register("minecraft:redstone_torch", map[string]any{"torch_facing_direction": facing})
		unlit := register("minecraft:unlit_redstone_torch", map[string]any{"torch_facing_direction": facing})
		litTorches[facing] = lit
		unlitTorches[facing] = unlit
		torchStates[lit] = torchState{lit: true, facing: facing}
		torchStates[unlit] = torchState{lit: false, facing: facing}
	}
	for _, dir := range HorizontalFaces {
		for delay := uint8(0); delay < 4; delay++ {
			key := repeaterKey{direction: dir, delay: delay}
			powered := register("minecraft:powered_repeater", map[string]any{
				"direction": int32(dir), "repeater_delay": int32(delay),
			})
			unpowered := register("minecraft:unpowered_repeater", map[string]any{
				"direction": int32(dir), "repeater_delay": int32(delay),
			})
			poweredRepeaters[key] = powered
			unpoweredRepeaters[key] = unpowered
			repeaterStates[powered] = RepeaterState{Powered: true, Direction: dir, Delay: delay}
			repeaterStates[unpowered] = RepeaterState{Powered: false, Direction: dir, Delay: delay}
		}
	}
	leverOn = register("minecraft:lever", map[string]any{"open_bit": byte(1)})
	leverOff = register("minecraft:lever", map[string]any{"open_bit": byte(0)})
}

// Wire returns the redstone wire state at the signal strength given.
func Wire(power uint8) uint32 { return wireByPower[power] }

// WirePower reports the signal strength of a wire state, or false for
// non-wire blocks.
func WirePower(hash uint32) (uint8, bool) {
	p, ok := wirePowers[hash]
	return p, ok
}

// IsWire reports whether the hash is a redstone wire of any strength.
func IsWire(hash uint32) bool { _, ok := wirePowers[hash]; return ok }

// Torch returns the redstone torch state with the given lit flag and
// torch_facing_direction value.
func Torch(lit bool, facing string) uint32 {
	if lit {
		return litTorches[facing]
	}
	return unlitTorches[facing]
}

// TorchLit reports whether the hash is a redstone torch and whether it is
// lit.
func TorchLit(hash uint32) (lit, isTorch bool) {
	s, ok := torchStates[hash]
	return s.lit, ok
}

// TorchAttachment returns the position of the block a torch is attached to.
func TorchAttachment(hash uint32, x, y, z int) (int, int, int, bool) {
	s, ok := torchStates[hash]
	if !ok {
		return 0, 0, 0, false
	}
	switch s.facing {
	case "top":
		return x, y - 1, z, true
	case "north":
		// Facing north means mounted on the south side of its neighbour.
		return x, y, z + 1, true
	case "south":
		return x, y, z - 1, true
	case "west":
		return x + 1, y, z, true
	case "east":
		return x - 1, y, z, true
	}
	return 0, 0, 0, false
}

// TorchFacing returns the torch_facing_direction of a torch state.
func TorchFacing(hash uint32) (string, bool) {
	s, ok := torchStates[hash]
	return s.facing, ok
}

// Repeater returns the repeater state for the identity given.
func Repeater(powered bool, direction Face, delay uint8) uint32 {
	key := repeaterKey{direction: direction, delay: delay}
	if powered {
		return poweredRepeaters[key]
	}
	return unpoweredRepeaters[key]
}

// RepeaterAt decodes a repeater state hash.
func RepeaterAt(hash uint32) (RepeaterState, bool) {
	s, ok := repeaterStates[hash]
	return s, ok
}

// IsRepeater reports whether the hash is a repeater in either power state.
func IsRepeater(hash uint32) bool { _, ok := repeaterStates[hash]; return ok }

// Lever returns the lever state with the given on/off position.
func Lever(on bool) uint32 {
	if on {
		return leverOn
	}
	return leverOff
}

// LeverOn reports whether the hash is a lever and whether it is switched
// on.
func LeverOn(hash uint32) (on, isLever bool) {
	switch hash {
	case leverOn:
		return true, true
	case leverOff:
		return false, true
	}
	return false, false
}
