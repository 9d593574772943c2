package raknet

// orderedChannel reorders ReliableOrdered frames that arrived out of
// sequence on a single channel, releasing them to the application only once
// every lower index has already been released.
type orderedChannel struct {
	expected uint32
	waiting  map[uint32][]byte
}

func newOrderedChannel() *orderedChannel {
	return &orderedChannel{waiting: make(map[uint32][]byte)}
}

// receive admits one ordered payload at index and returns, in order, every
// payload now ready for delivery (possibly more than one, if earlier gaps
// were just filled).
func (c *orderedChannel) receive(index uint32, payload []byte) [][]byte {
	if index < c.expected {
		// Already delivered; a retransmitted duplicate.
		return nil
	}
	c.waiting[index] = payload

	var ready [][]byte
	for {
		p, ok := c.waiting[c.expected]
		if !ok {
			break
		}
		ready = append(ready, p)
		delete(c.waiting, c.expected)
		c.expected++
	}
	return ready
}

// sequencer tracks the highest UnreliableSequenced/ReliableSequenced index
// seen per channel so stale datagrams (superseded by a newer one) are
// dropped instead of delivered out of order.
type sequencer struct {
	highest map[byte]uint32
	seen    map[byte]bool
}

func newSequencer() *sequencer {
	return &sequencer{highest: make(map[byte]uint32), seen: make(map[byte]bool)}
}

// admit reports whether a sequenced frame on channel at index is newer than
// anything already delivered on that channel.
func (s *sequencer) admit(channel byte, index uint32) bool {
	if s.seen[channel] && index <= s.highest[channel] {
		return false
	}
	s.highest[channel] = index
	s.seen[channel] = true
	return true
}
