package module

import (
	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/gateway/pkg/protocol"
)

// Event is one packet passing through the hook chain. Hooks may read the
// decoded payload, mutate it and set Modified, or set Canceled to drop the
// packet. Flags only ever accumulate: no hook can clear what another set.
type Event struct {
	Direction protocol.Direction
	ID        int32
	// Name is the packet's type tag, e.g. "chat" or "player_info".
	Name string
	// Raw is the packet body as received. Hooks must not modify it.
	Raw []byte

	Modified bool
	Canceled bool

	decode  func() (protocol.Payload, error)
	payload protocol.Payload
	err     error
	decoded bool
}

// NewEvent builds an event whose payload is decoded on first access only.
func NewEvent(dir protocol.Direction, id int32, raw []byte) *Event {
	return NewEventWithDecoder(dir, id, raw, func() (protocol.Payload, error) {
		return protocol.Decode(dir, id, raw)
	})
}

// NewEventWithDecoder is NewEvent with an explicit decode function.
func NewEventWithDecoder(dir protocol.Direction, id int32, raw []byte, decode func() (protocol.Payload, error)) *Event {
	return &Event{
		Direction: dir,
		ID:        id,
		Name:      protocol.Name(dir, id),
		Raw:       raw,
		decode:    decode,
	}
}

// Data returns the decoded payload, decoding it the first time it is asked
// for. Later calls return the same value, including any mutations.
func (e *Event) Data() (protocol.Payload, error) {
	if !e.decoded {
		e.payload, e.err = e.decode()
		e.decoded = true
	}
	return e.payload, e.err
}

// Decoded reports whether the payload has been decoded.
func (e *Event) Decoded() bool { return e.decoded }

// Packet returns what should be forwarded for a non-canceled event: the
// re-encoded payload when modified, otherwise the original bytes.
func (e *Event) Packet() (pk.Packet, error) {
	if !e.Modified {
		return pk.Packet{ID: e.ID, Data: e.Raw}, nil
	}
	p, err := e.Data()
	if err != nil {
		return pk.Packet{}, err
	}
	return protocol.Encode(p), nil
}
