package tick

import "github.com/sago-mc/bedrock/server/block"

// maxWireNetwork bounds how many wires one recalculation may visit, keeping
// a pathological wire field from stalling the tick.
const maxWireNetwork = 4096

// wireAdjacent lists the positions a wire connects through: the four
// cardinal neighbours on its own level plus the step-up and step-down
// diagonals.
func wireAdjacent(x, y, z int) [][3]int {
	out := make([][3]int, 0, 12)
	for _, f := range block.HorizontalFaces {
		nx, _, nz := f.Offset(x, y, z)
		out = append(out, [3]int{nx, y, nz}, [3]int{nx, y + 1, nz}, [3]int{nx, y - 1, nz})
	}
	return out
}

// RecalculateWireFrom recomputes signal strengths for the wire network
// reachable from the position given (which may itself be a wire or a block
// next to one). It returns the wire changes plus follow-up schedules for
// torches, repeaters and pistons whose input may have changed.
func RecalculateWireFrom(a Accessor, x, y, z int) Result {
	var res Result

	// Collect the affected wire set by flood fill through wire
	// connectivity.
	seeds := [][3]int{{x, y, z}}
	seeds = append(seeds, wireAdjacent(x, y, z)...)
	visited := map[uint64][3]int{}
	var frontier [][3]int
	for _, p := range seeds {
		if block.IsWire(a.Block(p[0], p[1], p[2])) {
			key := posKey(p[0], p[1], p[2])
			if _, ok := visited[key]; !ok {
				visited[key] = p
				frontier = append(frontier, p)
			}
		}
	}
	for len(frontier) > 0 && len(visited) < maxWireNetwork {
		p := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, n := range wireAdjacent(p[0], p[1], p[2]) {
			if !block.IsWire(a.Block(n[0], n[1], n[2])) {
				continue
			}
			key := posKey(n[0], n[1], n[2])
			if _, ok := visited[key]; ok {
				continue
			}
			visited[key] = n
			frontier = append(frontier, n)
		}
	}
	if len(visited) == 0 {
		return res
	}

	// Seed each wire with the strongest adjacent non-wire source, then
	// relax outward with decrement-by-one per step until fixed point.
	signal := make(map[uint64]uint8, len(visited))
	var queue [][3]int
	for key, p := range visited {
		s := wireSourcePower(a, p[0], p[1], p[2])
		signal[key] = s
		if s > 0 {
			queue = append(queue, p)
		}
	}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		s := signal[posKey(p[0], p[1], p[2])]
		if s <= 1 {
			continue
		}
		for _, n := range wireAdjacent(p[0], p[1], p[2]) {
			key := posKey(n[0], n[1], n[2])
			if _, ok := visited[key]; !ok {
				continue
			}
			if s-1 > signal[key] {
				signal[key] = s - 1
				queue = append(queue, n)
			}
		}
	}

	// Emit changes for wires whose strength moved, and schedule the
	// redstone components attached next to them.
	for key, p := range visited {
		cur, _ := block.WirePower(a.Block(p[0], p[1], p[2]))
		next := signal[key]
		if cur == next {
			continue
		}
		res.change(p[0], p[1], p[2], block.Wire(next))
		for _, f := range block.Faces {
			nx, ny, nz := f.Offset(p[0], p[1], p[2])
			scheduleComponent(a, &res, nx, ny, nz)
		}
	}
	return res
}

// scheduleComponent queues a follow-up tick if the block at the position is
// a torch, repeater or piston, whose state may need to react to the wire
// change.
func scheduleComponent(a Accessor, res *Result, x, y, z int) {
	h := a.Block(x, y, z)
	if _, isTorch := block.TorchLit(h); isTorch {
		res.schedule(x, y, z, 1, -1)
		return
	}
	if st, ok := block.RepeaterAt(h); ok {
		res.schedule(x, y, z, uint64(2*(st.Delay+1)), -1)
	}
	if _, ok := block.PistonAt(h); ok {
		res.schedule(x, y, z, 1, 0)
	}
}

// wireSourcePower returns the strongest signal the six neighbouring
// non-wire sources drive into a wire: a switched-on lever, a redstone
// block, a lit torch, or a powered repeater whose output faces the wire.
func wireSourcePower(a Accessor, x, y, z int) uint8 {
	var best uint8
	for _, f := range block.Faces {
		nx, ny, nz := f.Offset(x, y, z)
		h := a.Block(nx, ny, nz)
		var s uint8
		switch {
		case isOnLever(h), h == block.RedstoneBlock, isLitTorch(h):
			s = 15
		case repeaterOutputsTo(h, nx, ny, nz, x, y, z):
			s = 15
		}
		if s > best {
			best = s
		}
	}
	return best
}

func isOnLever(h uint32) bool {
	on, isLever := block.LeverOn(h)
	return isLever && on
}

func isLitTorch(h uint32) bool {
	lit, isTorch := block.TorchLit(h)
	return isTorch && lit
}

// repeaterOutputsTo reports whether h is a powered repeater at (x, y, z)
// whose output cell is (tx, ty, tz).
func repeaterOutputsTo(h uint32, x, y, z, tx, ty, tz int) bool {
	st, ok := block.RepeaterAt(h)
	if !ok || !st.Powered {
		return false
	}
	ox, oy, oz := st.Direction.Offset(x, y, z)
	return ox == tx && oy == ty && oz == tz
}

// blockPowered reports whether the cell receives power from an adjacent
// source or charged wire. Torches are excluded: a torch powers components
// and wires directly but never its own attachment neighbourhood, which
// would feed its state back into itself.
func blockPowered(a Accessor, x, y, z int) bool {
	for _, f := range block.Faces {
		nx, ny, nz := f.Offset(x, y, z)
		h := a.Block(nx, ny, nz)
		if isOnLever(h) || h == block.RedstoneBlock {
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

// componentPowered is the input rule for repeaters and pistons: the cell
// itself may hold the driving source or charged wire, and lit torches
// count in addition to everything blockPowered sees.
func componentPowered(a Accessor, x, y, z int) bool {
	h := a.Block(x, y, z)
	if isOnLever(h) || h == block.RedstoneBlock || isLitTorch(h) {
		return true
	}
	if p, ok := block.WirePower(h); ok && p > 0 {
		return true
	}
	if blockPowered(a, x, y, z) {
		return true
	}
	for _, f := range block.Faces {
		nx, ny, nz := f.Offset(x, y, z)
		if isLitTorch(a.Block(nx, ny, nz)) {
			return true
		}
	}
	return false
}

// tickTorch inverts a torch whose attachment block's power state flipped:
// lit while the attachment is unpowered, unlit while powered.
func tickTorch(a Accessor, x, y, z int, hash uint32) Result {
	var res Result
	lit, _ := block.TorchLit(hash)
	ax, ay, az, ok := block.TorchAttachment(hash, x, y, z)
	if !ok {
		return res
	}
	powered := blockPowered(a, ax, ay, az)
	if lit == !powered {
		return res
	}
	facing, _ := block.TorchFacing(hash)
	res.change(x, y, z, block.Torch(!powered, facing))
	res.neighbors(x, y, z)
	return res
}

// tickRepeater flips a repeater whose input side's power no longer matches
// its output state. The input is the side opposite the direction it faces.
func tickRepeater(a Accessor, x, y, z int, hash uint32) Result {
	var res Result
	st, _ := block.RepeaterAt(hash)
	ix, iy, iz := st.Direction.Opposite().Offset(x, y, z)
	powered := componentPowered(a, ix, iy, iz)
	if powered == st.Powered {
		return res
	}
	res.change(x, y, z, block.Repeater(powered, st.Direction, st.Delay))
	res.neighbors(x, y, z)
	return res
}
