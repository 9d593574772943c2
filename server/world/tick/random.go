package tick

import (
	"math/rand/v2"

	"github.com/sago-mc/bedrock/server/block"
)

// RandomTick runs one spontaneous simulation event on the block at the
// position: grass spread and reversion, crop growth and leaf decay. Blocks
// without random-tick behaviour are no-ops.
func RandomTick(a Accessor, x, y, z int, r *rand.Rand) Result {
	var res Result
	h := a.Block(x, y, z)
	switch {
	case h == block.GrassBlock:
		randomTickGrass(a, &res, x, y, z, r)
	case block.IsLeaves(h):
		randomTickLeaves(a, &res, x, y, z)
	default:
		if crop, ok := block.CropAt(h); ok {
			randomTickCrop(a, &res, x, y, z, crop)
		}
	}
	return res
}

// grassSpreadOffsets are the twelve candidate dirt positions grass may
// spread to: the four horizontal neighbours on the same level and one step
// up or down.
var grassSpreadOffsets = [12][3]int{
	{1, 0, 0}, {-1, 0, 0}, {0, 0, 1}, {0, 0, -1},
	{1, 1, 0}, {-1, 1, 0}, {0, 1, 1}, {0, 1, -1},
	{1, -1, 0}, {-1, -1, 0}, {0, -1, 1}, {0, -1, -1},
}

func randomTickGrass(a Accessor, res *Result, x, y, z int, r *rand.Rand) {
	if block.Solid(a.Block(x, y+1, z)) {
		res.change(x, y, z, block.Dirt)
		return
	}
	off := grassSpreadOffsets[r.IntN(len(grassSpreadOffsets))]
	nx, ny, nz := x+off[0], y+off[1], z+off[2]
	if a.Block(nx, ny, nz) == block.Dirt && !block.Solid(a.Block(nx, ny+1, nz)) {
		res.change(nx, ny, nz, block.GrassBlock)
	}
}

func randomTickCrop(a Accessor, res *Result, x, y, z int, crop block.CropState) {
	if a.Block(x, y-1, z) != block.Farmland || crop.Growth >= crop.MaxGrowth {
		return
	}
	res.change(x, y, z, block.Crop(crop.Name, crop.Growth+1))
}

// leafDecayRadius is the Manhattan distance within which a log sustains
// leaves.
const leafDecayRadius = 4

func randomTickLeaves(a Accessor, res *Result, x, y, z int) {
	for dx := -leafDecayRadius; dx <= leafDecayRadius; dx++ {
		for dy := -leafDecayRadius; dy <= leafDecayRadius; dy++ {
			for dz := -leafDecayRadius; dz <= leafDecayRadius; dz++ {
				if abs(dx)+abs(dy)+abs(dz) > leafDecayRadius {
					continue
				}
				if block.IsLog(a.Block(x+dx, y+dy, z+dz)) {
					return
				}
			}
		}
	}
	res.change(x, y, z, block.Air)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
