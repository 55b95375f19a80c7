package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Tnze/go-mc/chat"
	"github.com/Tnze/go-mc/offline"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/google/uuid"

	gwchat "github.com/go-mclib/gateway/pkg/chat"
	"github.com/go-mclib/gateway/pkg/protocol"
)

var (
	errStatusOnly         = errors.New("status request served")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

type clientLogin struct {
	username string
	uuid     uuid.UUID
}

type statusVersion struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

type statusPlayers struct {
	Max    int `json:"max"`
	Online int `json:"online"`
}

type statusDocument struct {
	Version     statusVersion `json:"version"`
	Players     statusPlayers `json:"players"`
	Description chat.Message  `json:"description"`
}

// acceptLogin runs the handshake on a fresh client connection. Status
// requests are answered and reported as errStatusOnly. Logins are accepted
// in offline mode and left in play state with a placeholder world.
func (s *Server) acceptLogin(conn protocol.Conn) (*clientLogin, error) {
	var hs protocol.Handshake
	if err := protocol.ReadExpect(conn, &hs); err != nil {
		return nil, fmt.Errorf("read handshake: %w", err)
	}
	switch hs.NextState {
	case 1:
		if err := s.serveStatus(conn); err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		return nil, errStatusOnly
	case 2:
	default:
		return nil, fmt.Errorf("%w: next state %d", protocol.ErrUnexpectedPacket, hs.NextState)
	}

	var start protocol.LoginStart
	if err := protocol.ReadExpect(conn, &start); err != nil {
		return nil, fmt.Errorf("read login start: %w", err)
	}
	if hs.ProtocolVersion != protocol.Version {
		_ = protocol.Write(conn, gwchat.LoginDisconnect("§cPlease use Minecraft "+protocol.VersionName+"."))
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hs.ProtocolVersion)
	}

	if threshold := s.Config.CompressionThreshold; threshold >= 0 {
		if err := protocol.Write(conn, &protocol.LoginSetCompression{Threshold: pk.VarInt(threshold)}); err != nil {
			return nil, fmt.Errorf("write set compression: %w", err)
		}
		if c, ok := conn.(interface{ SetThreshold(int) }); ok {
			c.SetThreshold(threshold)
		}
	}

	name := string(start.Name)
	id := offline.NameToUUID(name)
	if err := protocol.Write(conn, &protocol.LoginSuccess{UUID: pk.String(id.String()), Username: start.Name}); err != nil {
		return nil, fmt.Errorf("write login success: %w", err)
	}
	// a world for the client to wait in until the upstream takes over
	if err := protocol.Write(conn, &protocol.JoinGame{
		EntityID:   0,
		Gamemode:   0,
		Dimension:  0,
		Difficulty: 0,
		MaxPlayers: pk.UnsignedByte(min(s.Config.MaxPlayers, 255)),
		LevelType:  "normal",
	}); err != nil {
		return nil, fmt.Errorf("write join game: %w", err)
	}
	return &clientLogin{username: name, uuid: id}, nil
}

func (s *Server) serveStatus(conn protocol.Conn) error {
	if err := protocol.ReadExpect(conn, &protocol.StatusRequest{}); err != nil {
		return err
	}
	doc, err := json.Marshal(statusDocument{
		Version:     statusVersion{Name: protocol.VersionName, Protocol: protocol.Version},
		Players:     statusPlayers{Max: s.Config.MaxPlayers, Online: s.SessionCount()},
		Description: chat.Text(s.Config.MOTD),
	})
	if err != nil {
		return err
	}
	if err := protocol.Write(conn, &protocol.StatusResponse{JSON: pk.String(doc)}); err != nil {
		return err
	}
	var ping protocol.StatusPing
	if err := protocol.ReadExpect(conn, &ping); err != nil {
		return err
	}
	return protocol.Write(conn, &ping)
}
