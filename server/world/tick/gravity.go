package tick

import "github.com/sago-mc/bedrock/server/block"

// tickGravity drops an unsupported gravity block one cell and re-schedules
// it to keep falling. A solid block below brings it to rest.
func tickGravity(a Accessor, x, y, z int, hash uint32) Result {
	var res Result
	below := a.Block(x, y-1, z)
	if block.Solid(below) {
		return res
	}
	res.change(x, y, z, block.Air)
	res.change(x, y-1, z, hash)
	res.schedule(x, y-1, z, 1, 0)
	res.neighbors(x, y, z)
	return res
}
