package block

// Piston bodies and their arm collision blocks, keyed by facing. The arm
// occupies the cell in front of an extended piston and is immovable, so
// pistons can never push each other's arms.

type pistonKey struct {
	facing   Face
	sticky   bool
	extended bool
}

var (
	pistons      = map[pistonKey]uint32{}
	pistonStates = map[uint32]PistonState{}
	arms         = map[pistonKey]uint32{}
	armStates    = map[uint32]PistonState{}
)

// PistonState is the decoded identity of a piston body or arm.
type PistonState struct {
	Facing   Face
	Sticky   bool
	Extended bool
}

func init() {
	for _, facing := range Faces {
		for _, sticky := range []bool{false, true} {
			pistonName := "minecraft:piston"
			armName := "minecraft:piston_arm_collision"
			if sticky {
				pistonName = "minecraft:sticky_piston"
				armName = "minecraft:sticky_piston_arm_collision"
			}
			for _, extended := range []bool{false, true} {
				h := register(pistonName, map[string]any{
					"facing_direction": int32(facing), "extended_bit": boolByte(extended),
				})
				key := pistonKey{facing: facing, sticky: sticky, extended: extended}
				pistons[key] = h
				pistonStates[h] = PistonState{Facing: facing, Sticky: sticky, Extended: extended}
			}
			a := register(armName, map[string]any{"facing_direction": int32(facing)})
			armKey := pistonKey{facing: facing, sticky: sticky}
			arms[armKey] = a
			armStates[a] = PistonState{Facing: facing, Sticky: sticky}
		}
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Piston returns the piston body state for the identity given.
func Piston(facing Face, sticky, extended bool) uint32 {
	return pistons[pistonKey{facing: facing, sticky: sticky, extended: extended}]
}

// PistonArm returns the arm collision state for a piston facing the
// direction given.
func PistonArm(facing Face, sticky bool) uint32 {
	return arms[pistonKey{facing: facing, sticky: sticky}]
}

// PistonAt decodes a piston body hash.
func PistonAt(hash uint32) (PistonState, bool) {
	s, ok := pistonStates[hash]
	return s, ok
}

// PistonArmAt decodes a piston arm hash.
func PistonArmAt(hash uint32) (PistonState, bool) {
	s, ok := armStates[hash]
	return s, ok
}

// IsPiston reports whether the hash is a piston body of either kind.
func IsPiston(hash uint32) bool { _, ok := pistonStates[hash]; return ok }
