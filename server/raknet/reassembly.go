package raknet

// splitBuffer reassembles one fragmented message, keyed by SplitID, from the
// frames of possibly many FrameSets.
type splitBuffer struct {
	total int
	have  map[uint32][]byte
}

// reassembler tracks in-flight fragmented messages per split ID. A message
// larger than the session's MTU is broken into frames sharing a SplitID; the
// original payload is recovered once every SplitIndex in [0, SplitCount) has
// arrived.
type reassembler struct {
	pending map[uint16]*splitBuffer
}

func newReassembler() *reassembler {
	return &reassembler{pending: make(map[uint16]*splitBuffer)}
}

// add feeds one fragment frame in; it returns the reassembled payload and
// true once the final fragment for its SplitID arrives, else (nil, false).
func (r *reassembler) add(f *Frame) ([]byte, bool) {
	buf, ok := r.pending[f.SplitID]
	if !ok {
		buf = &splitBuffer{total: int(f.SplitCount), have: make(map[uint32][]byte)}
		r.pending[f.SplitID] = buf
	}
	buf.have[f.SplitIndex] = f.Payload
	if len(buf.have) < buf.total {
		return nil, false
	}
	out := make([]byte, 0, buf.total*len(f.Payload))
	for i := uint32(0); i < uint32(buf.total); i++ {
		part, ok := buf.have[i]
		if !ok {
			// A duplicate final fragment arrived before every index was
			// seen; wait for the real set to complete.
			return nil, false
		}
		out = append(out, part...)
	}
	delete(r.pending, f.SplitID)
	return out, true
}

// pendingBytes returns the total memory currently held by incomplete
// fragment buffers, used to enforce the per-session reassembly bound.
func (r *reassembler) pendingBytes() int {
	total := 0
	for _, buf := range r.pending {
		for _, part := range buf.have {
			total += len(part)
		}
	}
	return total
}

// splitPayload breaks payload into frames of at most maxChunk bytes each,
// sharing splitID, preserving the caller's chosen reliability on every
// fragment so the whole message retransmits and orders as one unit.
func splitPayload(payload []byte, maxChunk int, splitID uint16, reliability Reliability) []*Frame {
	if len(payload) <= maxChunk {
		return []*Frame{{Reliability: reliability, Payload: payload}}
	}
	count := (len(payload) + maxChunk - 1) / maxChunk
	frames := make([]*Frame, 0, count)
	for i := 0; i < count; i++ {
		start := i * maxChunk
		end := start + maxChunk
		if end > len(payload) {
			end = len(payload)
		}
		frames = append(frames, &Frame{
			Reliability: reliability,
			Split:       true,
			SplitCount:  uint32(count),
			SplitID:     splitID,
			SplitIndex:  uint32(i),
			Payload:     payload[start:end],
		})
	}
	return frames
}
