package tick

import "github.com/sago-mc/bedrock/server/block"

// fluidKind captures the per-family constants the flow algorithm needs.
type fluidKind struct {
	water    bool
	maxDepth uint8
	delay    uint64
	state    func(depth uint8) uint32
	depthOf  func(hash uint32) (uint8, bool)
	other    func(hash uint32) (uint8, bool)
}

func kindOf(hash uint32) (fluidKind, uint8) {
	if d, ok := block.WaterDepth(hash); ok {
		return fluidKind{
			water:    true,
			maxDepth: block.WaterMaxDepth,
			delay:    block.WaterTickDelay,
			state:    block.Water,
			depthOf:  block.WaterDepth,
			other:    block.LavaDepth,
		}, d
	}
	d, _ := block.LavaDepth(hash)
	return fluidKind{
		maxDepth: block.LavaMaxDepth,
		delay:    block.LavaTickDelay,
		state:    block.Lava,
		depthOf:  block.LavaDepth,
		other:    block.WaterDepth,
	}, d
}

// tickFluid runs one scheduled tick of the fluid at (x, y, z).
func tickFluid(a Accessor, x, y, z int, hash uint32) Result {
	k, depth := kindOf(hash)
	var res Result
	switch {
	case depth == 0:
		tickFluidSource(a, &res, k, x, y, z)
	case depth == block.FluidFalling:
		tickFluidFalling(a, &res, k, x, y, z)
	default:
		tickFluidFlowing(a, &res, k, x, y, z, depth)
	}
	return res
}

func tickFluidSource(a Accessor, res *Result, k fluidKind, x, y, z int) {
	if flowInto(a, res, k, x, y-1, z, block.FluidFalling) {
		return
	}
	spreadHorizontally(a, res, k, x, y, z, 1)
}

func tickFluidFalling(a Accessor, res *Result, k fluidKind, x, y, z int) {
	// A falling column survives only while fed from directly above by a
	// source, another falling cell or any flow.
	if _, fed := k.depthOf(a.Block(x, y+1, z)); !fed {
		res.change(x, y, z, block.Air)
		res.neighbors(x, y, z)
		return
	}
	if flowInto(a, res, k, x, y-1, z, block.FluidFalling) {
		return
	}
	spreadHorizontally(a, res, k, x, y, z, 1)
}

func tickFluidFlowing(a Accessor, res *Result, k fluidKind, x, y, z int, depth uint8) {
	// Two adjacent sources regenerate a flowing water cell into a source.
	if k.water {
		sources := 0
		for _, f := range block.HorizontalFaces {
			nx, ny, nz := f.Offset(x, y, z)
			if d, ok := block.WaterDepth(a.Block(nx, ny, nz)); ok && d == 0 {
				sources++
			}
		}
		if sources >= 2 {
			res.change(x, y, z, k.state(0))
			res.schedule(x, y, z, k.delay, 0)
			return
		}
	}

	feeder, hasFeeder := minFeederDepth(a, k, x, y, z)
	if !hasFeeder {
		res.change(x, y, z, block.Air)
		res.neighbors(x, y, z)
		return
	}
	effective := feeder + 1
	if effective > k.maxDepth {
		res.change(x, y, z, block.Air)
		res.neighbors(x, y, z)
		return
	}
	if effective != depth {
		res.change(x, y, z, k.state(effective))
		res.schedule(x, y, z, k.delay, 0)
		depth = effective
	}

	// A settled flow keeps pushing outward: down first, then sideways one
	// depth further until the spread limit.
	if flowInto(a, res, k, x, y-1, z, block.FluidFalling) {
		return
	}
	if depth < k.maxDepth {
		spreadHorizontally(a, res, k, x, y, z, depth+1)
	}
}

// minFeederDepth finds the strongest neighbour feeding this flow: any
// fluid of the family directly above, or a horizontal neighbour closer to
// a source. Sources and falling cells count as depth 0 feeders.
func minFeederDepth(a Accessor, k fluidKind, x, y, z int) (uint8, bool) {
	best := uint8(0)
	found := false
	record := func(d uint8) {
		if d == block.FluidFalling {
			d = 0
		}
		if !found || d < best {
			best, found = d, true
		}
	}
	if d, ok := k.depthOf(a.Block(x, y+1, z)); ok {
		record(d)
	}
	for _, f := range block.HorizontalFaces {
		nx, ny, nz := f.Offset(x, y, z)
		if d, ok := k.depthOf(a.Block(nx, ny, nz)); ok {
			record(d)
		}
	}
	return best, found
}

func spreadHorizontally(a Accessor, res *Result, k fluidKind, x, y, z int, depth uint8) {
	for _, f := range block.HorizontalFaces {
		nx, ny, nz := f.Offset(x, y, z)
		flowInto(a, res, k, nx, ny, nz, depth)
	}
}

// flowInto attempts to move fluid of kind k into the target cell at the
// depth given. It handles the three outcomes: occupy a replaceable cell,
// strengthen a weaker flow of the same family, or react with the opposite
// fluid. It reports whether the fluid occupied (or reacted with) the cell.
func flowInto(a Accessor, res *Result, k fluidKind, x, y, z int, depth uint8) bool {
	target := a.Block(x, y, z)

	// Water ↔ lava contact: water onto a lava source makes obsidian, water
	// onto flowing lava makes cobblestone, lava onto any water makes
	// cobblestone.
	if d, ok := k.other(target); ok {
		if k.water {
			if d == 0 {
				res.change(x, y, z, block.Obsidian)
			} else {
				res.change(x, y, z, block.Cobblestone)
			}
		} else {
			res.change(x, y, z, block.Cobblestone)
		}
		res.neighbors(x, y, z)
		return true
	}

	if d, ok := k.depthOf(target); ok {
		// Same family: only strengthen a strictly weaker flow.
		if d != 0 && d != block.FluidFalling && (depth == block.FluidFalling || depth < d) {
			res.change(x, y, z, k.state(depth))
			res.schedule(x, y, z, k.delay, 0)
			return true
		}
		return d == 0 || d == block.FluidFalling || d <= depth
	}

	if !block.FluidReplaceable(target) {
		return false
	}
	res.change(x, y, z, k.state(depth))
	res.schedule(x, y, z, k.delay, 0)
	return true
}
