package protocol

import "encoding/binary"

// ItemStack is the wire descriptor for a single inventory slot, per spec
// §4.2. A RuntimeID of 0 means the slot is empty and no further fields are
// present.
type ItemStack struct {
	RuntimeID       int32
	Count           uint16
	Metadata        uint32
	HasStackID      bool
	StackNetworkID  int32
	BlockRuntimeID  int32
	NBT             map[string]any // non-nil if UserDataMarker == nbtUserDataMarker
	RawUserData     []byte         // set when the user-data marker names a raw byte count instead of NBT
	CanPlaceOn      []string
	CanDestroy      []string
}

const nbtUserDataMarker = 0xFFFFFFFF

// WriteItemStack encodes an ItemStack descriptor.
func WriteItemStack(w *Writer, it ItemStack) {
	WriteVarInt32(w, it.RuntimeID)
	if it.RuntimeID == 0 {
		return
	}
	var cb [2]byte
	binary.LittleEndian.PutUint16(cb[:], it.Count)
	w.PutBytes(cb[:])
	WriteVarUint32(w, it.Metadata)

	if it.HasStackID {
		w.PutByte(1)
		WriteVarInt32(w, it.StackNetworkID)
	} else {
		w.PutByte(0)
	}
	WriteVarInt32(w, it.BlockRuntimeID)

	switch {
	case it.NBT != nil:
		WriteVarUint32(w, nbtUserDataMarker)
		w.PutByte(1) // NBT version prefix
		NewNBTWriter(w, NetworkEncoding).WriteRootCompound("", it.NBT)
	case len(it.RawUserData) > 0:
		WriteVarUint32(w, uint32(len(it.RawUserData)))
		w.PutBytes(it.RawUserData)
	default:
		WriteVarUint32(w, 0)
	}

	WriteVarInt32(w, int32(len(it.CanPlaceOn)))
	for _, s := range it.CanPlaceOn {
		WriteString(w, s)
	}
	WriteVarInt32(w, int32(len(it.CanDestroy)))
	for _, s := range it.CanDestroy {
		WriteString(w, s)
	}
}

// ReadItemStack decodes an ItemStack descriptor.
func ReadItemStack(r *Reader) (ItemStack, error) {
	var it ItemStack
	runtimeID, err := ReadVarInt32(r)
	if err != nil {
		return it, err
	}
	it.RuntimeID = runtimeID
	if runtimeID == 0 {
		return it, nil
	}

	cb, err := r.Bytes(2)
	if err != nil {
		return it, err
	}
	it.Count = binary.LittleEndian.Uint16(cb)

	if it.Metadata, err = ReadVarUint32(r); err != nil {
		return it, err
	}

	hasStackID, err := r.Byte()
	if err != nil {
		return it, err
	}
	it.HasStackID = hasStackID != 0
	if it.HasStackID {
		if it.StackNetworkID, err = ReadVarInt32(r); err != nil {
			return it, err
		}
	}
	if it.BlockRuntimeID, err = ReadVarInt32(r); err != nil {
		return it, err
	}

	marker, err := ReadVarUint32(r)
	if err != nil {
		return it, err
	}
	switch marker {
	case 0:
		// no user data
	case nbtUserDataMarker:
		if _, err = r.Byte(); err != nil { // version prefix
			return it, err
		}
		_, body, err := NewNBTReader(r, NetworkEncoding).ReadRootCompound()
		if err != nil {
			return it, err
		}
		it.NBT = body
	default:
		raw, err := r.Bytes(int(marker))
		if err != nil {
			return it, err
		}
		it.RawUserData = append([]byte(nil), raw...)
	}

	placeOnCount, err := ReadVarInt32(r)
	if err != nil {
		return it, err
	}
	for i := int32(0); i < placeOnCount; i++ {
		s, err := ReadString(r)
		if err != nil {
			return it, err
		}
		it.CanPlaceOn = append(it.CanPlaceOn, s)
	}
	destroyCount, err := ReadVarInt32(r)
	if err != nil {
		return it, err
	}
	for i := int32(0); i < destroyCount; i++ {
		s, err := ReadString(r)
		if err != nil {
			return it, err
		}
		it.CanDestroy = append(it.CanDestroy, s)
	}
	return it, nil
}
