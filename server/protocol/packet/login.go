package packet

import "github.com/sago-mc/bedrock/server/protocol"

// Login is sent once by the client to begin the login sequence. The
// ConnectionRequest field holds the raw JWT chain; per spec §4.2 the server
// only parses it for display name, UUID and XUID and never verifies the
// chain cryptographically.
type Login struct {
	ClientProtocol  int32
	ConnectionRequest string
}

func (*Login) ID() uint32 { return IDLogin }

func (pk *Login) Marshal(w *protocol.Writer) {
	protocol.WriteVarInt32(w, pk.ClientProtocol)
	protocol.WriteString(w, pk.ConnectionRequest)
}

func (pk *Login) Unmarshal(r *protocol.Reader) (err error) {
	if pk.ClientProtocol, err = protocol.ReadVarInt32(r); err != nil {
		return err
	}
	pk.ConnectionRequest, err = protocol.ReadString(r)
	return err
}

// PlayStatus reports a login-flow milestone or failure to the client.
type PlayStatus struct {
	Status int32
}

func (*PlayStatus) ID() uint32 { return IDPlayStatus }

func (pk *PlayStatus) Marshal(w *protocol.Writer) { protocol.WriteVarInt32(w, pk.Status) }

func (pk *PlayStatus) Unmarshal(r *protocol.Reader) (err error) {
	pk.Status, err = protocol.ReadVarInt32(r)
	return err
}

// Disconnect is sent before the server closes a session voluntarily.
type Disconnect struct {
	HideDisconnectScreen bool
	Message              string
}

func (*Disconnect) ID() uint32 { return IDDisconnect }

func (pk *Disconnect) Marshal(w *protocol.Writer) {
	if pk.HideDisconnectScreen {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
	protocol.WriteString(w, pk.Message)
}

func (pk *Disconnect) Unmarshal(r *protocol.Reader) error {
	b, err := r.Byte()
	if err != nil {
		return err
	}
	pk.HideDisconnectScreen = b != 0
	pk.Message, err = protocol.ReadString(r)
	return err
}

// ResourcePacksInfo lists packs the client may download; the server's
// pack list is always empty in this implementation (resource packs are out
// of scope per §1), so clients always proceed to ResourcePacksStack.
type ResourcePacksInfo struct {
	TexturePackRequired bool
	PackCount           int32
}

func (*ResourcePacksInfo) ID() uint32 { return IDResourcePacksInfo }

func (pk *ResourcePacksInfo) Marshal(w *protocol.Writer) {
	if pk.TexturePackRequired {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
	protocol.WriteVarInt32(w, pk.PackCount)
}

func (pk *ResourcePacksInfo) Unmarshal(r *protocol.Reader) (err error) {
	b, err := r.Byte()
	if err != nil {
		return err
	}
	pk.TexturePackRequired = b != 0
	pk.PackCount, err = protocol.ReadVarInt32(r)
	return err
}

// ResourcePacksStack finalises the resource pack negotiation.
type ResourcePacksStack struct {
	MustAccept bool
}

func (*ResourcePacksStack) ID() uint32 { return IDResourcePacksStack }

func (pk *ResourcePacksStack) Marshal(w *protocol.Writer) {
	if pk.MustAccept {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
}

func (pk *ResourcePacksStack) Unmarshal(r *protocol.Reader) error {
	b, err := r.Byte()
	pk.MustAccept = b != 0
	return err
}

// ResourcePackClientResponse is the client's reply after ResourcePacksStack.
type ResourcePackClientResponse struct {
	Status byte
}

func (*ResourcePackClientResponse) ID() uint32 { return IDResourcePackClientResponse }

func (pk *ResourcePackClientResponse) Marshal(w *protocol.Writer) { w.PutByte(pk.Status) }

func (pk *ResourcePackClientResponse) Unmarshal(r *protocol.Reader) (err error) {
	pk.Status, err = r.Byte()
	return err
}

// RequestChunkRadius is sent by the client once it has received StartGame,
// asking the server to stream chunks within the given radius.
type RequestChunkRadius struct {
	Radius int32
}

func (*RequestChunkRadius) ID() uint32 { return IDRequestChunkRadius }

func (pk *RequestChunkRadius) Marshal(w *protocol.Writer) { protocol.WriteVarInt32(w, pk.Radius) }

func (pk *RequestChunkRadius) Unmarshal(r *protocol.Reader) (err error) {
	pk.Radius, err = protocol.ReadVarInt32(r)
	return err
}

// ChunkRadiusUpdated confirms the (possibly clamped) chunk radius.
type ChunkRadiusUpdated struct {
	Radius int32
}

func (*ChunkRadiusUpdated) ID() uint32 { return IDChunkRadiusUpdated }

func (pk *ChunkRadiusUpdated) Marshal(w *protocol.Writer) { protocol.WriteVarInt32(w, pk.Radius) }

func (pk *ChunkRadiusUpdated) Unmarshal(r *protocol.Reader) (err error) {
	pk.Radius, err = protocol.ReadVarInt32(r)
	return err
}

// SetLocalPlayerAsInitialized is the last packet of the login sequence: once
// received, the player transitions to the InGame stage.
type SetLocalPlayerAsInitialized struct {
	RuntimeID uint64
}

func (*SetLocalPlayerAsInitialized) ID() uint32 { return IDSetLocalPlayerAsInitialized }

func (pk *SetLocalPlayerAsInitialized) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint64(w, pk.RuntimeID)
}

func (pk *SetLocalPlayerAsInitialized) Unmarshal(r *protocol.Reader) (err error) {
	pk.RuntimeID, err = protocol.ReadVarUint64(r)
	return err
}

// Text is a chat/system message.
type Text struct {
	TextType byte
	Source   string
	Message  string
}

func (*Text) ID() uint32 { return IDText }

func (pk *Text) Marshal(w *protocol.Writer) {
	w.PutByte(pk.TextType)
	protocol.WriteString(w, pk.Source)
	protocol.WriteString(w, pk.Message)
}

func (pk *Text) Unmarshal(r *protocol.Reader) (err error) {
	if pk.TextType, err = r.Byte(); err != nil {
		return err
	}
	if pk.Source, err = protocol.ReadString(r); err != nil {
		return err
	}
	pk.Message, err = protocol.ReadString(r)
	return err
}

// BiomeDefinitionList, CreativeContent, CraftingData, AvailableCommands and
// BlockPalette are sent once during login as large, mostly-static catalogue
// packets. Their contents (biome table, creative inventory, recipes, command
// tree, block palette) are generated from server-side registries outside
// this codec's concern. BiomeDefinitionList and BlockPalette carry their
// registry as an NBT list inside a root compound; CreativeContent carries a
// count-prefixed list of item-stack descriptors; CraftingData and
// AvailableCommands carry only an entry count.
type BiomeDefinitionList struct{ Biomes []any }

func (*BiomeDefinitionList) ID() uint32 { return IDBiomeDefinitionList }
func (pk *BiomeDefinitionList) Marshal(w *protocol.Writer) {
	protocol.NewNBTWriter(w, protocol.NetworkEncoding).WriteRootCompound("", map[string]any{"biomes": pk.Biomes})
}
func (pk *BiomeDefinitionList) Unmarshal(r *protocol.Reader) error {
	_, body, err := protocol.NewNBTReader(r, protocol.NetworkEncoding).ReadRootCompound()
	if err != nil {
		return err
	}
	if b, ok := body["biomes"].([]any); ok {
		pk.Biomes = b
	}
	return nil
}

type CreativeContent struct{ Items []protocol.ItemStack }

func (*CreativeContent) ID() uint32 { return IDCreativeContent }
func (pk *CreativeContent) Marshal(w *protocol.Writer) {
	protocol.WriteVarUint32(w, uint32(len(pk.Items)))
	for _, it := range pk.Items {
		protocol.WriteItemStack(w, it)
	}
}
func (pk *CreativeContent) Unmarshal(r *protocol.Reader) error {
	n, err := protocol.ReadVarUint32(r)
	if err != nil {
		return err
	}
	pk.Items = make([]protocol.ItemStack, 0, n)
	for i := uint32(0); i < n; i++ {
		it, err := protocol.ReadItemStack(r)
		if err != nil {
			return err
		}
		pk.Items = append(pk.Items, it)
	}
	return nil
}

type CraftingData struct{ RecipeCount int32 }

func (*CraftingData) ID() uint32 { return IDCraftingData }
func (pk *CraftingData) Marshal(w *protocol.Writer) { protocol.WriteVarInt32(w, pk.RecipeCount) }
func (pk *CraftingData) Unmarshal(r *protocol.Reader) (err error) {
	pk.RecipeCount, err = protocol.ReadVarInt32(r)
	return err
}

type AvailableCommands struct{ CommandCount int32 }

func (*AvailableCommands) ID() uint32 { return IDAvailableCommands }
func (pk *AvailableCommands) Marshal(w *protocol.Writer) { protocol.WriteVarInt32(w, pk.CommandCount) }
func (pk *AvailableCommands) Unmarshal(r *protocol.Reader) (err error) {
	pk.CommandCount, err = protocol.ReadVarInt32(r)
	return err
}

type BlockPalette struct{ Blocks []any }

func (*BlockPalette) ID() uint32 { return IDBlockPalette }
func (pk *BlockPalette) Marshal(w *protocol.Writer) {
	protocol.NewNBTWriter(w, protocol.NetworkEncoding).WriteRootCompound("", map[string]any{"blocks": pk.Blocks})
}
func (pk *BlockPalette) Unmarshal(r *protocol.Reader) error {
	_, body, err := protocol.NewNBTReader(r, protocol.NetworkEncoding).ReadRootCompound()
	if err != nil {
		return err
	}
	if b, ok := body["blocks"].([]any); ok {
		pk.Blocks = b
	}
	return nil
}
