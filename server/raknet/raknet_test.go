package raknet

import (
	"bytes"
	"fmt"
	"net"
	"reflect"
	"testing"
	"time"
)

func TestFrameSetRoundTrip(t *testing.T) {
	cases := []*FrameSet{
		{SequenceNumber: 0, Frames: []*Frame{
			{Reliability: Unreliable, Payload: []byte{0xFE, 1, 2, 3}},
		}},
		{SequenceNumber: 42, Frames: []*Frame{
			{Reliability: ReliableOrdered, MessageIndex: 7, OrderIndex: 3, OrderChannel: 1, Payload: []byte("hello")},
			{Reliability: Reliable, MessageIndex: 8, Payload: []byte{0xAA}},
		}},
		{SequenceNumber: 0xFFFFFF, Frames: []*Frame{
			{Reliability: ReliableOrdered, MessageIndex: 1, OrderIndex: 0, Split: true, SplitCount: 2, SplitID: 5, SplitIndex: 1, Payload: bytes.Repeat([]byte{0x42}, 100)},
		}},
		{SequenceNumber: 9, Frames: []*Frame{
			{Reliability: UnreliableSequenced, SequenceIndex: 12, OrderIndex: 12, OrderChannel: 2, Payload: []byte{1}},
		}},
	}
	for i, fs := range cases {
		got, err := decodeFrameSet(fs.encode())
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		if !reflect.DeepEqual(got, fs) {
			t.Errorf("case %d: round trip mismatch:\n got %+v\nwant %+v", i, got, fs)
		}
	}
}

func TestACKRecordCompression(t *testing.T) {
	cases := []struct {
		seqs    []uint32
		records int
	}{
		{[]uint32{5}, 1},
		{[]uint32{1, 2, 3, 4, 5}, 1},
		{[]uint32{1, 2, 3, 7, 9, 10}, 3},
		{[]uint32{10, 1, 2, 3}, 2},
	}
	for i, c := range cases {
		buf := encodeRecords(c.seqs)
		count := int(buf[0])<<8 | int(buf[1])
		if count != c.records {
			t.Errorf("case %d: got %d records, want %d", i, count, c.records)
		}
		got, err := decodeRecords(buf)
		if err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		want := make(map[uint32]bool)
		for _, s := range c.seqs {
			want[s] = true
		}
		if len(got) != len(want) {
			t.Fatalf("case %d: got %d seqs, want %d", i, len(got), len(want))
		}
		for _, s := range got {
			if !want[s] {
				t.Errorf("case %d: unexpected seq %d", i, s)
			}
		}
	}
}

func TestOrderedChannelReordersGaps(t *testing.T) {
	c := newOrderedChannel()
	if got := c.receive(1, []byte("b")); got != nil {
		t.Fatalf("early frame released: %q", got)
	}
	if got := c.receive(2, []byte("c")); got != nil {
		t.Fatalf("early frame released: %q", got)
	}
	got := c.receive(0, []byte("a"))
	if len(got) != 3 {
		t.Fatalf("gap fill released %d payloads, want 3", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(got[i]) != want {
			t.Errorf("payload %d = %q, want %q", i, got[i], want)
		}
	}
	if got := c.receive(1, []byte("dup")); got != nil {
		t.Errorf("retransmitted duplicate released: %q", got)
	}
}

func TestReassemblerCompletesOutOfOrder(t *testing.T) {
	r := newReassembler()
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 50)
	frames := splitPayload(payload, 64, 9, ReliableOrdered)
	if len(frames) < 2 {
		t.Fatalf("payload did not split: %d frames", len(frames))
	}
	// Feed fragments last-first; only the final missing one completes.
	for i := len(frames) - 1; i > 0; i-- {
		if _, done := r.add(frames[i]); done {
			t.Fatalf("reassembly completed with fragment %d missing", 0)
		}
	}
	full, done := r.add(frames[0])
	if !done {
		t.Fatal("reassembly did not complete with all fragments present")
	}
	if !bytes.Equal(full, payload) {
		t.Fatal("reassembled payload differs from the original")
	}
	if r.pendingBytes() != 0 {
		t.Errorf("pendingBytes = %d after completion, want 0", r.pendingBytes())
	}
}

// fakeAddr avoids binding real sockets in session-level tests.
type fakeAddr struct{ s string }

func (a fakeAddr) Network() string { return "udp" }
func (a fakeAddr) String() string  { return a.s }

func newTestPair() (a, b *Session, aOut, bOut *[][]byte) {
	var toB, toA [][]byte
	a = NewSession(fakeAddr{"a"}, 1, DefaultMTU, func(p []byte) { toB = append(toB, append([]byte(nil), p...)) }, nil)
	b = NewSession(fakeAddr{"b"}, 2, DefaultMTU, func(p []byte) { toA = append(toA, append([]byte(nil), p...)) }, nil)
	return a, b, &toB, &toA
}

func TestSessionDeliversOrderedPayloads(t *testing.T) {
	a, b, toB, _ := newTestPair()
	now := time.Now()

	var payloads [][]byte
	for i := 0; i < 5; i++ {
		payloads = append(payloads, []byte(fmt.Sprintf("packet-%d", i)))
		a.Send(payloads[i], ReliableOrdered, 0)
	}
	a.Flush(now)

	var got [][]byte
	for _, datagram := range *toB {
		if datagram[0]&datagramHeaderFlag == 0 {
			continue
		}
		out, err := b.HandleDatagram(datagram, now)
		if err != nil {
			t.Fatalf("handle datagram: %v", err)
		}
		got = append(got, out...)
	}
	if !reflect.DeepEqual(got, payloads) {
		t.Fatalf("delivered %q, want %q", got, payloads)
	}
}

func TestSessionFragmentsLargePayload(t *testing.T) {
	a, b, toB, _ := newTestPair()
	now := time.Now()

	big := bytes.Repeat([]byte{0xAB}, DefaultMTU*3)
	a.Send(big, ReliableOrdered, 0)
	a.Flush(now)

	if len(*toB) < 3 {
		t.Fatalf("large payload produced %d datagrams, want >= 3", len(*toB))
	}
	var got [][]byte
	for _, datagram := range *toB {
		out, err := b.HandleDatagram(datagram, now)
		if err != nil {
			t.Fatalf("handle datagram: %v", err)
		}
		got = append(got, out...)
	}
	if len(got) != 1 || !bytes.Equal(got[0], big) {
		t.Fatal("fragmented payload did not reassemble to the original")
	}
}

func TestSessionACKClearsRecovery(t *testing.T) {
	a, b, toB, toA := newTestPair()
	now := time.Now()

	a.Send([]byte("data"), Reliable, 0)
	a.Flush(now)
	for _, datagram := range *toB {
		if _, err := b.HandleDatagram(datagram, now); err != nil {
			t.Fatalf("handle datagram: %v", err)
		}
	}
	b.Flush(now)

	ackSeen := false
	for _, datagram := range *toA {
		if datagram[0] == idACK {
			ackSeen = true
			if err := a.HandleACK(datagram, now.Add(10*time.Millisecond)); err != nil {
				t.Fatalf("handle ack: %v", err)
			}
		}
	}
	if !ackSeen {
		t.Fatal("receiver queued no ACK")
	}
	a.mu.Lock()
	left := len(a.recovery)
	a.mu.Unlock()
	if left != 0 {
		t.Fatalf("%d recovery entries remain after ACK", left)
	}
}

func TestSessionNACKTriggersImmediateResend(t *testing.T) {
	a, _, toB, _ := newTestPair()
	now := time.Now()

	a.Send([]byte("lost"), Reliable, 0)
	a.Flush(now)
	sent := len(*toB)
	if sent == 0 {
		t.Fatal("nothing sent")
	}

	nack := append([]byte{idNACK}, encodeRecords([]uint32{0})...)
	if err := a.HandleNACK(nack, now); err != nil {
		t.Fatalf("handle nack: %v", err)
	}
	if len(*toB) != sent+1 {
		t.Fatalf("NACK did not trigger an immediate retransmission")
	}
}

func TestSessionDuplicateDatagramIgnored(t *testing.T) {
	a, b, toB, _ := newTestPair()
	now := time.Now()

	a.Send([]byte("once"), ReliableOrdered, 0)
	a.Flush(now)
	datagram := (*toB)[0]

	first, err := b.HandleDatagram(datagram, now)
	if err != nil || len(first) != 1 {
		t.Fatalf("first delivery failed: %v, %d payloads", err, len(first))
	}
	second, err := b.HandleDatagram(datagram, now)
	if err != nil {
		t.Fatalf("duplicate errored: %v", err)
	}
	if len(second) != 0 {
		t.Fatal("duplicate datagram delivered a payload twice")
	}
}

func TestSessionRetransmissionLimitBreaksSession(t *testing.T) {
	a, _, _, _ := newTestPair()
	now := time.Now()

	a.Send([]byte("never acked"), Reliable, 0)
	a.Flush(now)
	for i := 0; i < maxRetransmissions+2; i++ {
		now = now.Add(time.Second)
		a.Flush(now)
	}
	if !a.overloaded() {
		t.Fatal("session not marked broken after exceeding the retransmission budget")
	}
}

func TestHandshakeStateNeverRegresses(t *testing.T) {
	s := NewSession(fakeAddr{"a"}, 1, DefaultMTU, func([]byte) {}, nil)
	s.advanceHandshake(StateHandshakeCompleted)
	s.advanceHandshake(StateConnectionPending)
	s.advanceHandshake(StateConnected)
	s.advanceHandshake(StateHandshakeCompleted)
	if got := s.State(); got != StateConnected {
		t.Fatalf("state regressed to %v", got)
	}
}

var _ net.Addr = fakeAddr{}
