package tick

import "github.com/sago-mc/bedrock/server/block"

// maxPushChain is the vanilla piston push limit: 12 movable blocks; a 13th
// aborts the push entirely.
const maxPushChain = 12

// tickPiston reacts a piston body to its current power state: extend when
// powered and retracted, retract when unpowered and extended.
func tickPiston(a Accessor, x, y, z int, hash uint32) Result {
	var res Result
	st, _ := block.PistonAt(hash)
	powered := pistonPowered(a, x, y, z, st.Facing)
	switch {
	case powered && !st.Extended:
		extendPiston(a, &res, x, y, z, st)
	case !powered && st.Extended:
		retractPiston(a, &res, x, y, z, st)
	}
	return res
}

// pistonPowered checks every side except the face the piston pushes
// towards, which its own arm occupies while extended.
func pistonPowered(a Accessor, x, y, z int, facing block.Face) bool {
	for _, f := range block.Faces {
		if f == facing {
			continue
		}
		nx, ny, nz := f.Offset(x, y, z)
		h := a.Block(nx, ny, nz)
		if isOnLever(h) || h == block.RedstoneBlock || isLitTorch(h) {
			return true
		}
		if p, ok := block.WirePower(h); ok && p > 0 {
			return true
		}
		if repeaterOutputsTo(h, nx, ny, nz, x, y, z) {
			return true
		}
	}
	return false
}

// extendPiston walks the chain of solid blocks in front of the piston. A
// chain ending in air or a non-solid block within the push limit slides
// forward one cell and the arm takes the front cell; an immovable block or
// a 13-block chain aborts with no state change.
func extendPiston(a Accessor, res *Result, x, y, z int, st block.PistonState) {
	var chain [][3]int
	cx, cy, cz := st.Facing.Offset(x, y, z)
	for {
		h := a.Block(cx, cy, cz)
		if h == block.Air || !block.Solid(h) {
			break
		}
		if block.Immovable(h) || len(chain) == maxPushChain {
			return
		}
		chain = append(chain, [3]int{cx, cy, cz})
		cx, cy, cz = st.Facing.Offset(cx, cy, cz)
	}

	// Slide the chain from the far end so nothing is overwritten.
	for i := len(chain) - 1; i >= 0; i-- {
		p := chain[i]
		nx, ny, nz := st.Facing.Offset(p[0], p[1], p[2])
		res.change(nx, ny, nz, a.Block(p[0], p[1], p[2]))
	}
	ax, ay, az := st.Facing.Offset(x, y, z)
	res.change(ax, ay, az, block.PistonArm(st.Facing, st.Sticky))
	res.change(x, y, z, block.Piston(st.Facing, st.Sticky, true))
	res.neighbors(x, y, z)
	if len(chain) > 0 {
		last := chain[len(chain)-1]
		res.neighbors(last[0], last[1], last[2])
	}
}

// retractPiston removes the arm; a sticky piston also pulls back the block
// directly beyond where the arm was, unless that block is air, not solid,
// immovable or itself a piston.
func retractPiston(a Accessor, res *Result, x, y, z int, st block.PistonState) {
	ax, ay, az := st.Facing.Offset(x, y, z)
	res.change(x, y, z, block.Piston(st.Facing, st.Sticky, false))
	res.change(ax, ay, az, block.Air)

	if st.Sticky {
		bx, by, bz := st.Facing.Offset(ax, ay, az)
		h := a.Block(bx, by, bz)
		if h != block.Air && !block.Immovable(h) && !block.IsPiston(h) && block.Solid(h) {
			res.change(ax, ay, az, h)
			res.change(bx, by, bz, block.Air)
			res.neighbors(bx, by, bz)
		}
	}
	res.neighbors(x, y, z)
	res.neighbors(ax, ay, az)
}
