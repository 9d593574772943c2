package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// Tag is a dynamically typed NBT value. Supported Go representations:
// byte, int16, int32, int64, float32, float64, string, []byte, []int32,
// map[string]any (compound, iterated in sorted key order for determinism)
// and []any (list; every element must share the tag id of the first).
type Tag = any

const (
	tagEnd byte = iota
	tagByte
	tagShort
	tagInt
	tagLong
	tagFloat
	tagDouble
	tagByteArray
	tagString
	tagList
	tagCompound
	tagIntArray
)

func tagID(v Tag) byte {
	switch v.(type) {
	case byte:
		return tagByte
	case int16:
		return tagShort
	case int32:
		return tagInt
	case int64:
		return tagLong
	case float32:
		return tagFloat
	case float64:
		return tagDouble
	case []byte:
		return tagByteArray
	case string:
		return tagString
	case []any:
		return tagList
	case map[string]any:
		return tagCompound
	case []int32:
		return tagIntArray
	default:
		panic(fmt.Sprintf("protocol: unsupported NBT value type %T", v))
	}
}

// Encoding selects between the two little-endian NBT variants used by
// Bedrock: the wire variant VarInt-encodes integer tags and VarUint32
// length-prefixes strings; the disk variant uses fixed little-endian widths
// throughout, matching standard NBT.
type Encoding int

const (
	// NetworkEncoding is used inside game packets (VarInt ints, VarUint32
	// string lengths).
	NetworkEncoding Encoding = iota
	// DiskEncoding is used in level.dat and LevelDB BDS palette entries
	// (fixed little-endian widths, uint16 string lengths).
	DiskEncoding
)

// NBTWriter serializes NBT tags in a chosen little-endian Encoding.
type NBTWriter struct {
	w   *Writer
	enc Encoding
}

// NewNBTWriter returns a writer appending to w using enc.
func NewNBTWriter(w *Writer, enc Encoding) *NBTWriter { return &NBTWriter{w: w, enc: enc} }

// WriteRootCompound writes a named root compound tag, the form used for
// standalone NBT blobs (level.dat, BDS palette entries).
func (n *NBTWriter) WriteRootCompound(name string, v map[string]any) {
	n.w.PutByte(tagCompound)
	n.writeTagName(name)
	n.writeCompoundBody(v)
}

func (n *NBTWriter) writeTagName(name string) {
	if n.enc == NetworkEncoding {
		WriteString(n.w, name)
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(len(name)))
	n.w.PutBytes(b[:])
	n.w.PutBytes([]byte(name))
}

func (n *NBTWriter) writeInt32(v int32) {
	if n.enc == NetworkEncoding {
		WriteVarInt32(n.w, v)
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	n.w.PutBytes(b[:])
}

func (n *NBTWriter) writeInt64(v int64) {
	if n.enc == NetworkEncoding {
		WriteVarInt64(n.w, v)
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	n.w.PutBytes(b[:])
}

func (n *NBTWriter) writeInt16(v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	n.w.PutBytes(b[:])
}

func (n *NBTWriter) writeStringValue(s string) {
	if n.enc == NetworkEncoding {
		WriteString(n.w, s)
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(len(s)))
	n.w.PutBytes(b[:])
	n.w.PutBytes([]byte(s))
}

func (n *NBTWriter) writeValue(v Tag) {
	switch val := v.(type) {
	case byte:
		n.w.PutByte(val)
	case int16:
		n.writeInt16(val)
	case int32:
		n.writeInt32(val)
	case int64:
		n.writeInt64(val)
	case float32:
		WriteFloat32(n.w, val)
	case float64:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], math.Float64bits(val))
		n.w.PutBytes(b[:])
	case []byte:
		n.writeInt32(int32(len(val)))
		n.w.PutBytes(val)
	case string:
		n.writeStringValue(val)
	case []any:
		n.writeListBody(val)
	case map[string]any:
		n.writeCompoundBody(val)
	case []int32:
		n.writeInt32(int32(len(val)))
		for _, e := range val {
			n.writeInt32(e)
		}
	default:
		panic(fmt.Sprintf("protocol: unsupported NBT value type %T", v))
	}
}

func (n *NBTWriter) writeListBody(list []any) {
	var elemID byte
	if len(list) > 0 {
		elemID = tagID(list[0])
	}
	n.w.PutByte(elemID)
	n.writeInt32(int32(len(list)))
	for _, e := range list {
		n.writeValue(e)
	}
}

func (n *NBTWriter) writeCompoundBody(v map[string]any) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := v[k]
		n.w.PutByte(tagID(val))
		n.writeTagName(k)
		n.writeValue(val)
	}
	n.w.PutByte(tagEnd)
}

// NBTReader deserializes NBT tags written by NBTWriter.
type NBTReader struct {
	r   *Reader
	enc Encoding
}

// NewNBTReader returns a reader over r using enc.
func NewNBTReader(r *Reader, enc Encoding) *NBTReader { return &NBTReader{r: r, enc: enc} }

// ReadRootCompound reads a named root compound tag and returns its name and
// body.
func (n *NBTReader) ReadRootCompound() (string, map[string]any, error) {
	id, err := n.r.Byte()
	if err != nil {
		return "", nil, err
	}
	if id != tagCompound {
		return "", nil, fmt.Errorf("protocol: expected root compound tag, got %d", id)
	}
	name, err := n.readTagName()
	if err != nil {
		return "", nil, err
	}
	body, err := n.readCompoundBody()
	return name, body, err
}

func (n *NBTReader) readTagName() (string, error) {
	if n.enc == NetworkEncoding {
		return ReadString(n.r)
	}
	b, err := n.r.Bytes(2)
	if err != nil {
		return "", err
	}
	length := binary.LittleEndian.Uint16(b)
	raw, err := n.r.Bytes(int(length))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (n *NBTReader) readInt32() (int32, error) {
	if n.enc == NetworkEncoding {
		return ReadVarInt32(n.r)
	}
	b, err := n.r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (n *NBTReader) readInt64() (int64, error) {
	if n.enc == NetworkEncoding {
		return ReadVarInt64(n.r)
	}
	b, err := n.r.Bytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (n *NBTReader) readInt16() (int16, error) {
	b, err := n.r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(b)), nil
}

func (n *NBTReader) readStringValue() (string, error) {
	if n.enc == NetworkEncoding {
		return ReadString(n.r)
	}
	b, err := n.r.Bytes(2)
	if err != nil {
		return "", err
	}
	length := binary.LittleEndian.Uint16(b)
	raw, err := n.r.Bytes(int(length))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (n *NBTReader) readValue(id byte) (Tag, error) {
	switch id {
	case tagByte:
		return n.r.Byte()
	case tagShort:
		return n.readInt16()
	case tagInt:
		return n.readInt32()
	case tagLong:
		return n.readInt64()
	case tagFloat:
		return ReadFloat32(n.r)
	case tagDouble:
		b, err := n.r.Bytes(8)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case tagByteArray:
		length, err := n.readInt32()
		if err != nil {
			return nil, err
		}
		raw, err := n.r.Bytes(int(length))
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	case tagString:
		return n.readStringValue()
	case tagList:
		return n.readListBody()
	case tagCompound:
		return n.readCompoundBody()
	case tagIntArray:
		length, err := n.readInt32()
		if err != nil {
			return nil, err
		}
		out := make([]int32, length)
		for i := range out {
			v, err := n.readInt32()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("protocol: unknown NBT tag id %d", id)
	}
}

func (n *NBTReader) readListBody() ([]any, error) {
	elemID, err := n.r.Byte()
	if err != nil {
		return nil, err
	}
	length, err := n.readInt32()
	if err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, nil
	}
	out := make([]any, length)
	for i := range out {
		v, err := n.readValue(elemID)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (n *NBTReader) readCompoundBody() (map[string]any, error) {
	out := make(map[string]any)
	for {
		id, err := n.r.Byte()
		if err != nil {
			return nil, err
		}
		if id == tagEnd {
			return out, nil
		}
		name, err := n.readTagName()
		if err != nil {
			return nil, err
		}
		val, err := n.readValue(id)
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
}
