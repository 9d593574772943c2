package packet

// Packet ID registry. These are internal identifiers for this
// implementation's packet pool; the numeric values only need to be
// internally consistent since spec §4.2 does not enumerate the full
// Mojang ID table, only the wire shape of the envelope and the
// representative packets.
const (
	IDLogin uint32 = iota + 1
	IDPlayStatus
	IDDisconnect
	IDResourcePacksInfo
	IDResourcePacksStack
	IDResourcePackClientResponse
	IDText
	IDStartGame
	IDLevelChunk
	IDRequestChunkRadius
	IDChunkRadiusUpdated
	IDSetLocalPlayerAsInitialized
	IDBiomeDefinitionList
	IDCreativeContent
	IDCraftingData
	IDAvailableCommands
	IDBlockPalette
	IDPlayerAuthInput
	IDMovePlayer
	IDUpdateBlock
	IDLevelEvent
	IDEntityEvent
	IDItemStackRequest
	IDItemStackResponse
	IDInventoryTransaction
	IDStartBreak
	IDBreakBlock
	IDMobEquipment
	IDRespawn
	IDSetEntityMotion
	IDAddPlayer
	IDAddEntity
	IDRemoveEntity
	IDMoveEntity
	IDSetHealth
	IDUpdateAttributes
	IDInventoryContent
)

// PlayStatus status codes.
const (
	PlayStatusLoginSuccess int32 = iota
	PlayStatusLoginFailedClient
	PlayStatusLoginFailedServer
	PlayStatusPlayerSpawn
	PlayStatusLoginFailedInvalidTenant
	PlayStatusLoginFailedVanillaEdu
	PlayStatusLoginFailedEduVanilla
	PlayStatusLoginFailedServerFull
)

// LevelEvent event IDs.
const (
	LevelEventParticleDestroyBlock int32 = 3001
	LevelEventStartRaining         int32 = 3401
	LevelEventStopRaining          int32 = 3403
)

// EntityEvent event IDs.
const (
	EntityEventHurt byte = 2
	EntityEventDeath byte = 3
)

// ResourcePackClientResponse statuses.
const (
	PackResponseRefused byte = iota + 1
	PackResponseSendPacks
	PackResponseAllPacksDownloaded
	PackResponseCompleted
)

// InventoryTransaction sub-types.
const (
	TransactionTypeNormal uint32 = iota
	TransactionTypeUseItem
	TransactionTypeUseItemOnEntity
	TransactionTypeReleaseItem
)

// UseItemOnEntity actions.
const (
	UseItemOnEntityActionInteract uint32 = iota
	UseItemOnEntityActionAttack
)
