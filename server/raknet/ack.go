package raknet

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// encodeRecords packs a set of FrameSet sequence numbers into the RakNet ACK
// record format: a 16-bit big-endian record count followed by records, each
// either a single sequence (marker 0x01 + 3-byte LE sequence) or an inclusive
// range (marker 0x00 + 3-byte LE start + 3-byte LE end). Runs of consecutive
// sequence numbers are compressed into a single range record.
func encodeRecords(seqs []uint32) []byte {
	sorted := append([]uint32(nil), seqs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	type record struct{ start, end uint32 }
	var records []record
	for i := 0; i < len(sorted); {
		start := sorted[i]
		end := start
		j := i + 1
		for j < len(sorted) && sorted[j] == end+1 {
			end = sorted[j]
			j++
		}
		records = append(records, record{start, end})
		i = j
	}

	buf := make([]byte, 2, 2+len(records)*7)
	binary.BigEndian.PutUint16(buf, uint16(len(records)))
	for _, rec := range records {
		if rec.start == rec.end {
			buf = append(buf, 0x01)
			var b [3]byte
			putUint24(b[:], rec.start)
			buf = append(buf, b[:]...)
		} else {
			buf = append(buf, 0x00)
			var s, e [3]byte
			putUint24(s[:], rec.start)
			putUint24(e[:], rec.end)
			buf = append(buf, s[:]...)
			buf = append(buf, e[:]...)
		}
	}
	return buf
}

// decodeRecords expands the record format above back into individual
// sequence numbers.
func decodeRecords(buf []byte) ([]uint32, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("raknet: ack record count truncated")
	}
	count := binary.BigEndian.Uint16(buf)
	off := 2
	var out []uint32
	for i := uint16(0); i < count; i++ {
		if off >= len(buf) {
			return nil, fmt.Errorf("raknet: ack record truncated")
		}
		marker := buf[off]
		off++
		if marker == 0x01 {
			if off+3 > len(buf) {
				return nil, fmt.Errorf("raknet: single ack record truncated")
			}
			out = append(out, uint24(buf[off:]))
			off += 3
		} else {
			if off+6 > len(buf) {
				return nil, fmt.Errorf("raknet: range ack record truncated")
			}
			start := uint24(buf[off:])
			end := uint24(buf[off+3:])
			off += 6
			for s := start; s <= end; s++ {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func encodeACK(seqs []uint32) []byte  { return append([]byte{idACK}, encodeRecords(seqs)...) }
func encodeNACK(seqs []uint32) []byte { return append([]byte{idNACK}, encodeRecords(seqs)...) }
