package protocol

import (
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

// KeepAlive has the same layout in both directions.
type KeepAlive struct {
	KeepAliveID pk.VarInt
}

func (*KeepAlive) PacketID() int32 { return ClientKeepAliveID }
func (p *KeepAlive) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.KeepAliveID)
}
func (p *KeepAlive) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.KeepAliveID)
}

// JoinGame is the first play packet; the gateway calls it the session-transfer packet.
type JoinGame struct {
	EntityID         pk.Int
	Gamemode         pk.UnsignedByte
	Dimension        pk.Byte
	Difficulty       pk.UnsignedByte
	MaxPlayers       pk.UnsignedByte
	LevelType        pk.String
	ReducedDebugInfo pk.Boolean
}

func (*JoinGame) PacketID() int32 { return JoinGameID }
func (p *JoinGame) fields() []field {
	return []field{&p.EntityID, &p.Gamemode, &p.Dimension, &p.Difficulty, &p.MaxPlayers, &p.LevelType, &p.ReducedDebugInfo}
}
func (p *JoinGame) WriteTo(w io.Writer) (int64, error)  { return writeFields(w, p.fields()...) }
func (p *JoinGame) ReadFrom(r io.Reader) (int64, error) { return readFields(r, p.fields()...) }

// Respawn derives the respawn that re-targets the client at the world a
// join game describes. The hardcore bit only exists on join game.
func (p *JoinGame) Respawn() *Respawn {
	return &Respawn{
		Dimension:  pk.Int(p.Dimension),
		Difficulty: p.Difficulty,
		Gamemode:   p.Gamemode &^ 0x08,
		LevelType:  p.LevelType,
	}
}

type Respawn struct {
	Dimension  pk.Int
	Difficulty pk.UnsignedByte
	Gamemode   pk.UnsignedByte
	LevelType  pk.String
}

func (*Respawn) PacketID() int32 { return RespawnID }
func (p *Respawn) fields() []field {
	return []field{&p.Dimension, &p.Difficulty, &p.Gamemode, &p.LevelType}
}
func (p *Respawn) WriteTo(w io.Writer) (int64, error)  { return writeFields(w, p.fields()...) }
func (p *Respawn) ReadFrom(r io.Reader) (int64, error) { return readFields(r, p.fields()...) }

// Chat positions for ClientChat.
const (
	ChatPositionChat   = 0
	ChatPositionSystem = 1
	ChatPositionAction = 2
)

// ClientChat is a clientbound chat message carrying a JSON text component.
type ClientChat struct {
	JSON     pk.String
	Position pk.Byte
}

func (*ClientChat) PacketID() int32 { return ClientChatID }
func (p *ClientChat) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.JSON, &p.Position)
}
func (p *ClientChat) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.JSON, &p.Position)
}

// ServerChat is the plain text a client typed.
type ServerChat struct {
	Message pk.String
}

func (*ServerChat) PacketID() int32 { return ServerChatID }
func (p *ServerChat) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Message)
}
func (p *ServerChat) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Message)
}

type pluginMessage struct {
	Channel pk.String
	Data    pk.PluginMessageData
}

func (p *pluginMessage) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Channel, &p.Data)
}
func (p *pluginMessage) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Channel, &p.Data)
}

type ClientPluginMessage struct{ pluginMessage }

func (*ClientPluginMessage) PacketID() int32 { return ClientPluginMessageID }

// NewServerPluginMessage builds a serverbound plugin message.
func NewServerPluginMessage(channel string, data []byte) *ServerPluginMessage {
	return &ServerPluginMessage{pluginMessage{Channel: pk.String(channel), Data: data}}
}

type ServerPluginMessage struct{ pluginMessage }

func (*ServerPluginMessage) PacketID() int32 { return ServerPluginMessageID }

// Disconnect kicks the client during play with a JSON chat reason.
type Disconnect struct {
	Reason pk.String
}

func (*Disconnect) PacketID() int32 { return DisconnectID }
func (p *Disconnect) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Reason)
}
func (p *Disconnect) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Reason)
}

type SetCompression struct {
	Threshold pk.VarInt
}

func (*SetCompression) PacketID() int32 { return PlaySetCompressionID }
func (p *SetCompression) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Threshold)
}
func (p *SetCompression) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Threshold)
}

type Player struct {
	OnGround pk.Boolean
}

func (*Player) PacketID() int32 { return PlayerID }
func (p *Player) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.OnGround)
}
func (p *Player) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.OnGround)
}

type PlayerPosition struct {
	X, FeetY, Z pk.Double
	OnGround    pk.Boolean
}

func (*PlayerPosition) PacketID() int32 { return PlayerPositionID }
func (p *PlayerPosition) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.X, &p.FeetY, &p.Z, &p.OnGround)
}
func (p *PlayerPosition) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.X, &p.FeetY, &p.Z, &p.OnGround)
}

type PlayerLook struct {
	Yaw, Pitch pk.Float
	OnGround   pk.Boolean
}

func (*PlayerLook) PacketID() int32 { return PlayerLookID }
func (p *PlayerLook) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Yaw, &p.Pitch, &p.OnGround)
}
func (p *PlayerLook) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Yaw, &p.Pitch, &p.OnGround)
}

type PlayerPositionLook struct {
	X, FeetY, Z pk.Double
	Yaw, Pitch  pk.Float
	OnGround    pk.Boolean
}

func (*PlayerPositionLook) PacketID() int32 { return PlayerPositionLookID }
func (p *PlayerPositionLook) fields() []field {
	return []field{&p.X, &p.FeetY, &p.Z, &p.Yaw, &p.Pitch, &p.OnGround}
}
func (p *PlayerPositionLook) WriteTo(w io.Writer) (int64, error)  { return writeFields(w, p.fields()...) }
func (p *PlayerPositionLook) ReadFrom(r io.Reader) (int64, error) { return readFields(r, p.fields()...) }

// Animation swings the player's arm. It has no body in 1.8.
type Animation struct{}

func (*Animation) PacketID() int32 { return AnimationID }
func (*Animation) WriteTo(io.Writer) (int64, error) { return 0, nil }
func (*Animation) ReadFrom(io.Reader) (int64, error) { return 0, nil }

// Raw is the opaque body of a packet the gateway has no typed form for.
// It re-encodes to exactly the bytes it was read from.
type Raw struct {
	ID   int32
	Data pk.PluginMessageData
}

func (p *Raw) PacketID() int32 { return p.ID }
func (p *Raw) WriteTo(w io.Writer) (int64, error) {
	return p.Data.WriteTo(w)
}
func (p *Raw) ReadFrom(r io.Reader) (int64, error) {
	return p.Data.ReadFrom(r)
}
