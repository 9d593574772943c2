package packet

import "github.com/sago-mc/bedrock/server/protocol"

// StackRequestAction is one action within an ItemStackRequest: move Count
// items of a stack from a source slot to a destination slot, in a given
// container. Real crafting/drop/consume actions are variations on this same
// move primitive; spec §4.2 treats ItemStackRequest as a representative hard
// packet rather than enumerating every action kind.
type StackRequestAction struct {
	SourceSlot      byte
	SourceContainer byte
	DestSlot        byte
	DestContainer   byte
	Count           byte
}

func writeStackRequestAction(w *protocol.Writer, a StackRequestAction) {
	w.PutByte(a.SourceSlot)
	w.PutByte(a.SourceContainer)
	w.PutByte(a.DestSlot)
	w.PutByte(a.DestContainer)
	w.PutByte(a.Count)
}

func readStackRequestAction(r *protocol.Reader) (a StackRequestAction, err error) {
	if a.SourceSlot, err = r.Byte(); err != nil {
		return a, err
	}
	if a.SourceContainer, err = r.Byte(); err != nil {
		return a, err
	}
	if a.DestSlot, err = r.Byte(); err != nil {
		return a, err
	}
	if a.DestContainer, err = r.Byte(); err != nil {
		return a, err
	}
	a.Count, err = r.Byte()
	return a, err
}

// ItemStackRequest batches the client's proposed inventory mutations for one
// request ID; the server answers with a matching ItemStackResponse, either
// confirming or rejecting (and implicitly resyncing) the request.
type ItemStackRequest struct {
	RequestID int32
	Actions   []StackRequestAction
}

func (*ItemStackRequest) ID() uint32 { return IDItemStackRequest }

func (pk *ItemStackRequest) Marshal(w *protocol.Writer) {
	protocol.WriteVarInt32(w, pk.RequestID)
	protocol.WriteVarUint32(w, uint32(len(pk.Actions)))
	for _, a := range pk.Actions {
		writeStackRequestAction(w, a)
	}
}

func (pk *ItemStackRequest) Unmarshal(r *protocol.Reader) error {
	id, err := protocol.ReadVarInt32(r)
	if err != nil {
		return err
	}
	pk.RequestID = id
	n, err := protocol.ReadVarUint32(r)
	if err != nil {
		return err
	}
	pk.Actions = make([]StackRequestAction, 0, n)
	for i := uint32(0); i < n; i++ {
		a, err := readStackRequestAction(r)
		if err != nil {
			return err
		}
		pk.Actions = append(pk.Actions, a)
	}
	return nil
}

// Item stack response status codes.
const (
	ItemStackResponseStatusOK byte = iota
	ItemStackResponseStatusError
)

// ItemStackResponse answers one ItemStackRequest. A non-OK Status means the
// server rejected the request and the client must resynchronise its
// inventory from the authoritative slots the server holds.
type ItemStackResponse struct {
	RequestID int32
	Status    byte
}

func (*ItemStackResponse) ID() uint32 { return IDItemStackResponse }

func (pk *ItemStackResponse) Marshal(w *protocol.Writer) {
	protocol.WriteVarInt32(w, pk.RequestID)
	w.PutByte(pk.Status)
}

func (pk *ItemStackResponse) Unmarshal(r *protocol.Reader) (err error) {
	if pk.RequestID, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	pk.Status, err = r.Byte()
	return err
}

// InventoryTransaction covers the remaining, non item-stack-request
// inventory interactions: placing/using a held item against the world
// (UseItem), or against another entity such as a melee hit (UseItemOnEntity,
// spec §5 "combat validation pipeline").
type InventoryTransaction struct {
	TransactionType uint32

	// Populated when TransactionType == TransactionTypeUseItem.
	BlockPosition  protocol.BlockPos
	BlockFace      int32
	HeldItem       protocol.ItemStack

	// Populated when TransactionType == TransactionTypeUseItemOnEntity.
	TargetRuntimeID uint64
	Action          uint32
}

func (*InventoryTransaction) ID() uint32 { return IDInventoryTransaction }

func (pk *InventoryTransaction) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint32(w, pk.TransactionType)
	switch pk.TransactionType {
	case TransactionTypeUseItem:
		protocol.WriteBlockPos(w, pk.BlockPosition)
		protocol.WriteVarInt32(w, pk.BlockFace)
		protocol.WriteItemStack(w, pk.HeldItem)
	case TransactionTypeUseItemOnEntity:
		protocol.WriteVarUint64(w, pk.TargetRuntimeID)
		protocol.WriteVarUint32(w, pk.Action)
		protocol.WriteItemStack(w, pk.HeldItem)
	}
}

func (pk *InventoryTransaction) Unmarshal(r *protocol.Reader) (err error) {
	if pk.TransactionType, err = protocol.ReadVarUint32(r); err != nil {
		return err
	}
	switch pk.TransactionType {
	case TransactionTypeUseItem:
		if pk.BlockPosition, err = protocol.ReadBlockPos(r); err != nil {
			return err
		}
		if pk.BlockFace, err = protocol.ReadVarInt32(r); err != nil {
			return err
		}
		pk.HeldItem, err = protocol.ReadItemStack(r)
		return err
	case TransactionTypeUseItemOnEntity:
		if pk.TargetRuntimeID, err = protocol.ReadVarUint64(r); err != nil {
			return err
		}
		if pk.Action, err = protocol.ReadVarUint32(r); err != nil {
			return err
		}
		pk.HeldItem, err = protocol.ReadItemStack(r)
		return err
	}
	return nil
}
