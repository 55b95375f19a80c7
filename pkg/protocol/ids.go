// Package protocol is the gateway's view of the 1.8.9 wire protocol: packet
// ids, type tags and typed payloads for the packets the gateway reads or
// writes. Framing, compression and encryption are left to go-mc's net package.
package protocol

import "fmt"

// Version is the only protocol version the gateway speaks (1.8.9).
const (
	Version     = 47
	VersionName = "1.8.9"
)

type State uint8

const (
	StateHandshake State = iota
	StateStatus
	StateLogin
	StatePlay
)

func (s State) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateStatus:
		return "status"
	case StateLogin:
		return "login"
	case StatePlay:
		return "play"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Direction is the flow of a packet relative to the gateway.
type Direction uint8

const (
	// Clientbound packets travel from the upstream server to the client.
	Clientbound Direction = iota
	// Serverbound packets travel from the client to the upstream server.
	Serverbound
)

func (d Direction) String() string {
	if d == Clientbound {
		return "clientbound"
	}
	return "serverbound"
}

// handshake
const (
	HandshakeID int32 = 0x00
)

// status
const (
	StatusRequestID  int32 = 0x00
	StatusPingID     int32 = 0x01
	StatusResponseID int32 = 0x00
	StatusPongID     int32 = 0x01
)

// login
const (
	LoginStartID          int32 = 0x00
	EncryptionResponseID  int32 = 0x01
	LoginDisconnectID     int32 = 0x00
	EncryptionRequestID   int32 = 0x01
	LoginSuccessID        int32 = 0x02
	LoginSetCompressionID int32 = 0x03
)

// play, clientbound
const (
	ClientKeepAliveID     int32 = 0x00
	JoinGameID            int32 = 0x01
	ClientChatID          int32 = 0x02
	RespawnID             int32 = 0x07
	PlayerListItemID      int32 = 0x38
	ClientPluginMessageID int32 = 0x3F
	DisconnectID          int32 = 0x40
	PlaySetCompressionID  int32 = 0x46
)

// play, serverbound
const (
	ServerKeepAliveID     int32 = 0x00
	ServerChatID          int32 = 0x01
	PlayerID              int32 = 0x03
	PlayerPositionID      int32 = 0x04
	PlayerLookID          int32 = 0x05
	PlayerPositionLookID  int32 = 0x06
	AnimationID           int32 = 0x0A
	ServerPluginMessageID int32 = 0x17
)

var clientboundNames = map[int32]string{
	ClientKeepAliveID:     "keep_alive",
	JoinGameID:            "login",
	ClientChatID:          "chat",
	0x03:                  "update_time",
	0x04:                  "entity_equipment",
	0x05:                  "spawn_position",
	0x06:                  "update_health",
	RespawnID:             "respawn",
	0x08:                  "position",
	0x09:                  "held_item_slot",
	0x0B:                  "animation",
	0x0C:                  "named_entity_spawn",
	0x12:                  "entity_velocity",
	0x13:                  "entity_destroy",
	0x15:                  "rel_entity_move",
	0x18:                  "entity_teleport",
	0x19:                  "entity_head_rotation",
	0x1C:                  "entity_metadata",
	0x21:                  "map_chunk",
	0x22:                  "multi_block_change",
	0x23:                  "block_change",
	0x26:                  "map_chunk_bulk",
	0x2F:                  "set_slot",
	0x30:                  "window_items",
	0x32:                  "transaction",
	PlayerListItemID:      "player_info",
	0x3B:                  "scoreboard_objective",
	0x3D:                  "scoreboard_display_objective",
	0x3E:                  "scoreboard_team",
	ClientPluginMessageID: "custom_payload",
	DisconnectID:          "kick_disconnect",
	0x45:                  "title",
	PlaySetCompressionID:  "set_compression",
	0x47:                  "playerlist_header",
}

var serverboundNames = map[int32]string{
	ServerKeepAliveID:     "keep_alive",
	ServerChatID:          "chat",
	0x02:                  "use_entity",
	PlayerID:              "flying",
	PlayerPositionID:      "position",
	PlayerLookID:          "look",
	PlayerPositionLookID:  "position_look",
	0x07:                  "block_dig",
	0x08:                  "block_place",
	0x09:                  "held_item_slot",
	AnimationID:           "arm_animation",
	0x0B:                  "entity_action",
	0x0D:                  "close_window",
	0x0E:                  "window_click",
	0x0F:                  "transaction",
	0x14:                  "tab_complete",
	0x15:                  "settings",
	0x16:                  "client_command",
	ServerPluginMessageID: "custom_payload",
}

// Name returns the type tag of a play-state packet.
func Name(dir Direction, id int32) string {
	table := serverboundNames
	if dir == Clientbound {
		table = clientboundNames
	}
	if name, ok := table[id]; ok {
		return name
	}
	return fmt.Sprintf("unknown_0x%02x", id)
}

// IsMovement reports whether a serverbound play packet is one of the
// flying/position/look family the client sends every tick.
func IsMovement(id int32) bool {
	switch id {
	case PlayerID, PlayerPositionID, PlayerLookID, PlayerPositionLookID:
		return true
	}
	return false
}
