package raknet

import (
	"log/slog"
	"net"
	"sync"
	"time"
)

// State is a session's position in the connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateHandshakeCompleted
	StateConnectionPending
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateHandshakeCompleted:
		return "handshake-completed"
	case StateConnectionPending:
		return "connection-pending"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// sentFrameSet records a FrameSet this session transmitted and has not yet
// had acknowledged, for retransmission on timeout or NACK.
type sentFrameSet struct {
	fs      *FrameSet
	sent    time.Time
	resends int
}

// Session is one client's reliable-UDP connection: FrameSet packing and
// unpacking, retransmission, fragmentation and per-channel ordering. A
// Session never reaches across the network itself; Listener owns the socket
// and hands Session the raw datagrams for its address.
type Session struct {
	Addr net.Addr
	GUID uint64
	MTU  int

	log *slog.Logger
	out func(b []byte)

	mu sync.Mutex

	state State

	nextSequenceNumber uint32
	nextMessageIndex   uint32
	nextSequenceIndex  [MaxOrderChannels]uint32
	nextOrderIndex     [MaxOrderChannels]uint32
	nextSplitID        uint16

	pendingFrames []*Frame
	recovery      map[uint32]sentFrameSet

	rtt time.Duration

	receivedSeqs map[uint32]bool
	ackQueue     []uint32
	nackQueue    []uint32
	highestSeen  uint32
	haveHighest  bool

	reassembler *reassembler
	ordered     [MaxOrderChannels]*orderedChannel
	seq         *sequencer

	LastActivity time.Time
	lastPing     time.Time
	created      time.Time

	broken bool
}

// NewSession constructs a Session that writes outgoing datagrams through
// send. mtu must be at least MinMTU.
func NewSession(addr net.Addr, guid uint64, mtu int, send func(b []byte), log *slog.Logger) *Session {
	if mtu < MinMTU {
		mtu = MinMTU
	}
	s := &Session{
		Addr:         addr,
		GUID:         guid,
		MTU:          mtu,
		log:          log,
		out:          send,
		state:        StateConnecting,
		recovery:     make(map[uint32]sentFrameSet),
		receivedSeqs: make(map[uint32]bool),
		reassembler:  newReassembler(),
		seq:          newSequencer(),
		rtt:          100 * time.Millisecond,
		LastActivity: time.Now(),
		created:      time.Now(),
	}
	for i := range s.ordered {
		s.ordered[i] = newOrderedChannel()
	}
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState transitions the session, logging the edge for diagnosability.
func (s *Session) setState(next State) {
	prev := s.state
	s.state = next
	if s.log != nil {
		s.log.Debug("raknet session state transition", "addr", s.Addr.String(), "from", prev.String(), "to", next.String())
	}
}

// Send queues payload for delivery under reliability on channel. Payloads
// larger than the session's safe MTU are fragmented transparently.
func (s *Session) Send(payload []byte, reliability Reliability, channel byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxChunk := s.MTU - 60 /* IP+UDP+frame header safety margin */
	var frames []*Frame
	if len(payload) > maxChunk {
		id := s.nextSplitID
		s.nextSplitID++
		frames = splitPayload(payload, maxChunk, id, reliability)
	} else {
		frames = []*Frame{{Reliability: reliability, Payload: payload}}
	}
	// Every fragment of one message shares its sequence and order index, so
	// the reassembled message is sequenced and ordered as one unit.
	sequenceIndex, orderIndex := s.nextSequenceIndex[channel], s.nextOrderIndex[channel]
	if reliability.Sequenced() {
		s.nextSequenceIndex[channel]++
	}
	if reliability.Ordered() {
		s.nextOrderIndex[channel]++
	}
	for _, f := range frames {
		if reliability.Reliable() {
			f.MessageIndex = s.nextMessageIndex
			s.nextMessageIndex++
		}
		if reliability.Sequenced() {
			f.OrderChannel = channel
			f.SequenceIndex = sequenceIndex
		}
		if reliability.Ordered() {
			f.OrderChannel = channel
			f.OrderIndex = orderIndex
		}
		s.pendingFrames = append(s.pendingFrames, f)
	}
}

// frameSetOverhead is the datagram header size (ID byte plus 24-bit
// sequence number) that Flush counts when packing frames under the MTU.
const frameSetOverhead = 4

// Flush packs queued frames into FrameSets, transmits acks/nacks, and
// retransmits any recovery entry that has outlived 2×RTT without an ACK.
// It must be called regularly (driven by the owning Listener's tick loop).
func (s *Session) Flush(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ackQueue) > 0 {
		s.out(encodeACK(s.ackQueue))
		s.ackQueue = nil
	}
	if len(s.nackQueue) > 0 {
		s.out(encodeNACK(s.nackQueue))
		s.nackQueue = nil
	}

	for len(s.pendingFrames) > 0 {
		fs := &FrameSet{SequenceNumber: s.nextSequenceNumber}
		s.nextSequenceNumber++
		size := frameSetOverhead
		i := 0
		for i < len(s.pendingFrames) {
			f := s.pendingFrames[i]
			if size+f.size() > s.MTU && len(fs.Frames) > 0 {
				break
			}
			fs.Frames = append(fs.Frames, f)
			size += f.size()
			i++
		}
		s.pendingFrames = s.pendingFrames[i:]
		s.out(fs.encode())
		s.recovery[fs.SequenceNumber] = sentFrameSet{fs: fs, sent: now}
	}

	timeout := s.rtt * 2
	if timeout < DefaultResendInterval {
		timeout = DefaultResendInterval
	}
	for seq, entry := range s.recovery {
		if now.Sub(entry.sent) >= timeout {
			entry.resends++
			if entry.resends > maxRetransmissions {
				// The same reliable data failed to get through too many
				// times; the pipeline is broken and the session must die.
				s.broken = true
				return
			}
			s.resendLocked(seq, entry, now)
		}
	}
}

// resendLocked re-wraps the frames of a held recovery entry into a fresh
// FrameSet under a newly allocated sequence number and transmits it, moving
// the recovery bookkeeping from oldSeq to the new sequence number so a
// later ACK can clear it. Frames keep their original reliable MessageIndex;
// only the FrameSet's own sequence number changes. Callers must hold s.mu.
func (s *Session) resendLocked(oldSeq uint32, entry sentFrameSet, now time.Time) {
	delete(s.recovery, oldSeq)
	fs := &FrameSet{SequenceNumber: s.nextSequenceNumber, Frames: entry.fs.Frames}
	s.nextSequenceNumber++
	entry.fs = fs
	entry.sent = now
	s.recovery[fs.SequenceNumber] = entry
	s.out(fs.encode())
}

// advanceHandshake moves the session forward through the connection
// lifecycle. Regressions are ignored so a retransmitted handshake packet
// cannot reset an established session.
func (s *Session) advanceHandshake(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next > s.state && s.state != StateClosed {
		s.setState(next)
	}
}

// expired reports whether the session outlived its idle or handshake
// deadline, along with the reason for diagnostics.
func (s *Session) expired(now time.Time, idle, handshake time.Duration) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateConnected {
		if now.Sub(s.LastActivity) > idle {
			return "idle timeout", true
		}
		return "", false
	}
	if s.state != StateClosed && now.Sub(s.created) > handshake {
		return "handshake timeout", true
	}
	return "", false
}

// needsPing reports whether a keepalive ConnectedPing is due.
func (s *Session) needsPing(now time.Time, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.LastActivity) < interval {
		return false
	}
	return s.lastPing.IsZero() || now.Sub(s.lastPing) >= interval
}

func (s *Session) markPinged(now time.Time) {
	s.mu.Lock()
	s.lastPing = now
	s.mu.Unlock()
}

// overloaded reports whether the session exhausted a resource bound: its
// fragment buffers grew past the memory limit or a reliable frame could not
// be delivered within the retransmission budget. Either is fatal for the
// session, not just the datagram.
func (s *Session) overloaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.broken || s.reassembler.pendingBytes() > maxReassemblyBytes
}

// recordRTT folds a fresh round-trip sample into the smoothed estimate used
// to size the retransmission timeout, matching the exponential smoothing
// convention used throughout this codebase's other timing-sensitive code.
func (s *Session) recordRTT(sample time.Duration) {
	const alpha = 0.125
	s.rtt = time.Duration((1-alpha)*float64(s.rtt) + alpha*float64(sample))
}

// HandleDatagram decodes one FrameSet datagram addressed to this session and
// returns the application payloads now ready for delivery, in arrival order
// (ordered-channel gaps are buffered and released once filled).
func (s *Session) HandleDatagram(buf []byte, now time.Time) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastActivity = now
	fs, err := decodeFrameSet(buf)
	if err != nil {
		return nil, err
	}
	if s.receivedSeqs[fs.SequenceNumber] {
		return nil, nil // duplicate datagram; already acked once
	}
	s.receivedSeqs[fs.SequenceNumber] = true
	s.ackQueue = append(s.ackQueue, fs.SequenceNumber)

	if !s.haveHighest || fs.SequenceNumber > s.highestSeen {
		for missing := s.highestSeen + 1; s.haveHighest && missing < fs.SequenceNumber; missing++ {
			s.nackQueue = append(s.nackQueue, missing)
		}
		s.highestSeen = fs.SequenceNumber
		s.haveHighest = true
	}

	var out [][]byte
	for _, f := range fs.Frames {
		payload := f.Payload
		if f.Split {
			full, done := s.reassembler.add(f)
			if !done {
				continue
			}
			payload = full
		}
		if f.Reliability.Sequenced() {
			if !s.seq.admit(f.OrderChannel, f.SequenceIndex) {
				continue
			}
		}
		if f.Reliability.Ordered() {
			out = append(out, s.ordered[f.OrderChannel].receive(f.OrderIndex, payload)...)
			continue
		}
		out = append(out, payload)
	}
	return out, nil
}

// HandleACK clears every acknowledged sequence from the recovery set and
// folds its round-trip time into the retransmission estimate.
func (s *Session) HandleACK(buf []byte, now time.Time) error {
	seqs, err := decodeRecords(buf[1:])
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range seqs {
		if entry, ok := s.recovery[seq]; ok {
			s.recordRTT(now.Sub(entry.sent))
			delete(s.recovery, seq)
		}
	}
	return nil
}

// HandleNACK immediately retransmits every FrameSet the peer reports
// missing under a fresh sequence number, rather than waiting for the
// timeout in Flush.
func (s *Session) HandleNACK(buf []byte, now time.Time) error {
	seqs, err := decodeRecords(buf[1:])
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range seqs {
		if entry, ok := s.recovery[seq]; ok {
			entry.resends++
			if entry.resends > maxRetransmissions {
				s.broken = true
				return nil
			}
			s.resendLocked(seq, entry, now)
		}
	}
	return nil
}

// Close marks the session closed; the Listener removes it from its session
// map after observing this state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setState(StateClosed)
}
