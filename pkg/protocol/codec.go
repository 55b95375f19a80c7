package protocol

import (
	"errors"
	"fmt"

	pk "github.com/Tnze/go-mc/net/packet"
)

// ErrUnexpectedPacket is returned by ReadExpect when the next packet has a
// different id than the one asked for.
var ErrUnexpectedPacket = errors.New("unexpected packet")

// Conn is a framed packet connection. *go-mc/net.Conn satisfies it.
type Conn interface {
	ReadPacket(p *pk.Packet) error
	WritePacket(p pk.Packet) error
	Close() error
}

type playKey struct {
	dir Direction
	id  int32
}

var playPayloads = map[playKey]func() Payload{
	{Clientbound, ClientKeepAliveID}:     func() Payload { return new(KeepAlive) },
	{Clientbound, JoinGameID}:            func() Payload { return new(JoinGame) },
	{Clientbound, ClientChatID}:          func() Payload { return new(ClientChat) },
	{Clientbound, RespawnID}:             func() Payload { return new(Respawn) },
	{Clientbound, PlayerListItemID}:      func() Payload { return new(PlayerListItem) },
	{Clientbound, ClientPluginMessageID}: func() Payload { return new(ClientPluginMessage) },
	{Clientbound, DisconnectID}:          func() Payload { return new(Disconnect) },
	{Clientbound, PlaySetCompressionID}:  func() Payload { return new(SetCompression) },
	{Serverbound, ServerKeepAliveID}:     func() Payload { return new(KeepAlive) },
	{Serverbound, ServerChatID}:          func() Payload { return new(ServerChat) },
	{Serverbound, PlayerID}:              func() Payload { return new(Player) },
	{Serverbound, PlayerPositionID}:      func() Payload { return new(PlayerPosition) },
	{Serverbound, PlayerLookID}:          func() Payload { return new(PlayerLook) },
	{Serverbound, PlayerPositionLookID}:  func() Payload { return new(PlayerPositionLook) },
	{Serverbound, AnimationID}:           func() Payload { return new(Animation) },
	{Serverbound, ServerPluginMessageID}: func() Payload { return new(ServerPluginMessage) },
}

// Decode parses the body of a play packet. Ids without a typed form decode
// into *Raw, which keeps the bytes as they are.
func Decode(dir Direction, id int32, data []byte) (Payload, error) {
	var p Payload
	if newPayload, ok := playPayloads[playKey{dir, id}]; ok {
		p = newPayload()
	} else {
		p = &Raw{ID: id}
	}
	if err := (pk.Packet{ID: id, Data: data}).Scan(p); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", dir, Name(dir, id), err)
	}
	return p, nil
}

// Encode frames a payload as a packet.
func Encode(p Payload) pk.Packet {
	return pk.Marshal(p.PacketID(), p)
}

// Write encodes p and writes it to c.
func Write(c Conn, p Payload) error {
	return c.WritePacket(Encode(p))
}

// ReadExpect reads the next packet from c and decodes it into p.
func ReadExpect(c Conn, p Payload) error {
	var packet pk.Packet
	if err := c.ReadPacket(&packet); err != nil {
		return err
	}
	if packet.ID != p.PacketID() {
		return fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrUnexpectedPacket, packet.ID, p.PacketID())
	}
	return packet.Scan(p)
}
