package protocol

import (
	"fmt"
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/google/uuid"
)

// PlayerListItem actions.
const (
	PlayerListAdd int32 = iota
	PlayerListUpdateGamemode
	PlayerListUpdateLatency
	PlayerListUpdateDisplayName
	PlayerListRemove
)

// PlayerListItem is the roster packet. Which entry fields are present on
// the wire depends on Action.
type PlayerListItem struct {
	Action  pk.VarInt
	Players []PlayerListEntry
}

type PlayerListEntry struct {
	UUID           pk.UUID
	Name           pk.String
	Properties     []PlayerProperty
	Gamemode       pk.VarInt
	Ping           pk.VarInt
	HasDisplayName pk.Boolean
	DisplayName    pk.String
}

type PlayerProperty struct {
	Name      pk.String
	Value     pk.String
	IsSigned  pk.Boolean
	Signature pk.String
}

func (*PlayerListItem) PacketID() int32 { return PlayerListItemID }

// ReplaceUUID rewrites every entry whose UUID is from to to and reports how
// many entries changed.
func (p *PlayerListItem) ReplaceUUID(from, to uuid.UUID) int {
	n := 0
	for i := range p.Players {
		if uuid.UUID(p.Players[i].UUID) == from {
			p.Players[i].UUID = pk.UUID(to)
			n++
		}
	}
	return n
}

func (p *PlayerListItem) WriteTo(w io.Writer) (int64, error) {
	count := pk.VarInt(len(p.Players))
	n, err := writeFields(w, &p.Action, &count)
	if err != nil {
		return n, err
	}
	for i := range p.Players {
		m, err := p.Players[i].writeTo(w, int32(p.Action))
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (p *PlayerListItem) ReadFrom(r io.Reader) (int64, error) {
	var count pk.VarInt
	n, err := readFields(r, &p.Action, &count)
	if err != nil {
		return n, err
	}
	if count < 0 {
		return n, fmt.Errorf("player list: negative entry count %d", count)
	}
	p.Players = make([]PlayerListEntry, 0, min(int(count), 1024))
	for range int(count) {
		var e PlayerListEntry
		m, err := e.readFrom(r, int32(p.Action))
		n += m
		if err != nil {
			return n, err
		}
		p.Players = append(p.Players, e)
	}
	return n, nil
}

func (e *PlayerListEntry) writeTo(w io.Writer, action int32) (int64, error) {
	n, err := writeFields(w, &e.UUID)
	if err != nil {
		return n, err
	}
	var m int64
	switch action {
	case PlayerListAdd:
		count := pk.VarInt(len(e.Properties))
		m, err = writeFields(w, &e.Name, &count)
		n += m
		if err != nil {
			return n, err
		}
		for i := range e.Properties {
			m, err = e.Properties[i].writeTo(w)
			n += m
			if err != nil {
				return n, err
			}
		}
		m, err = writeFields(w, &e.Gamemode, &e.Ping)
		n += m
		if err != nil {
			return n, err
		}
		m, err = e.writeDisplayName(w)
	case PlayerListUpdateGamemode:
		m, err = writeFields(w, &e.Gamemode)
	case PlayerListUpdateLatency:
		m, err = writeFields(w, &e.Ping)
	case PlayerListUpdateDisplayName:
		m, err = e.writeDisplayName(w)
	case PlayerListRemove:
	default:
		err = fmt.Errorf("player list: unknown action %d", action)
	}
	return n + m, err
}

func (e *PlayerListEntry) readFrom(r io.Reader, action int32) (int64, error) {
	n, err := readFields(r, &e.UUID)
	if err != nil {
		return n, err
	}
	var m int64
	switch action {
	case PlayerListAdd:
		var count pk.VarInt
		m, err = readFields(r, &e.Name, &count)
		n += m
		if err != nil {
			return n, err
		}
		if count < 0 {
			return n, fmt.Errorf("player list: negative property count %d", count)
		}
		for range int(count) {
			var prop PlayerProperty
			m, err = prop.readFrom(r)
			n += m
			if err != nil {
				return n, err
			}
			e.Properties = append(e.Properties, prop)
		}
		m, err = readFields(r, &e.Gamemode, &e.Ping)
		n += m
		if err != nil {
			return n, err
		}
		m, err = e.readDisplayName(r)
	case PlayerListUpdateGamemode:
		m, err = readFields(r, &e.Gamemode)
	case PlayerListUpdateLatency:
		m, err = readFields(r, &e.Ping)
	case PlayerListUpdateDisplayName:
		m, err = e.readDisplayName(r)
	case PlayerListRemove:
	default:
		err = fmt.Errorf("player list: unknown action %d", action)
	}
	return n + m, err
}

func (e *PlayerListEntry) writeDisplayName(w io.Writer) (int64, error) {
	if !e.HasDisplayName {
		return writeFields(w, &e.HasDisplayName)
	}
	return writeFields(w, &e.HasDisplayName, &e.DisplayName)
}

func (e *PlayerListEntry) readDisplayName(r io.Reader) (int64, error) {
	n, err := readFields(r, &e.HasDisplayName)
	if err != nil || !e.HasDisplayName {
		return n, err
	}
	m, err := readFields(r, &e.DisplayName)
	return n + m, err
}

func (p *PlayerProperty) writeTo(w io.Writer) (int64, error) {
	if !p.IsSigned {
		return writeFields(w, &p.Name, &p.Value, &p.IsSigned)
	}
	return writeFields(w, &p.Name, &p.Value, &p.IsSigned, &p.Signature)
}

func (p *PlayerProperty) readFrom(r io.Reader) (int64, error) {
	n, err := readFields(r, &p.Name, &p.Value, &p.IsSigned)
	if err != nil || !p.IsSigned {
		return n, err
	}
	m, err := readFields(r, &p.Signature)
	return n + m, err
}
