package protocol

import (
	"io"

	pk "github.com/Tnze/go-mc/net/packet"
)

// Handshake opens every connection. NextState is 1 for status and 2 for login.
type Handshake struct {
	ProtocolVersion pk.VarInt
	ServerAddress   pk.String
	ServerPort      pk.UnsignedShort
	NextState       pk.VarInt
}

func (*Handshake) PacketID() int32 { return HandshakeID }
func (p *Handshake) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.ProtocolVersion, &p.ServerAddress, &p.ServerPort, &p.NextState)
}
func (p *Handshake) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.ProtocolVersion, &p.ServerAddress, &p.ServerPort, &p.NextState)
}

type StatusRequest struct{}

func (*StatusRequest) PacketID() int32 { return StatusRequestID }
func (*StatusRequest) WriteTo(io.Writer) (int64, error) { return 0, nil }
func (*StatusRequest) ReadFrom(io.Reader) (int64, error) { return 0, nil }

// StatusResponse carries the server list JSON document.
type StatusResponse struct {
	JSON pk.String
}

func (*StatusResponse) PacketID() int32 { return StatusResponseID }
func (p *StatusResponse) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.JSON)
}
func (p *StatusResponse) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.JSON)
}

// StatusPing is both the serverbound ping and the clientbound pong.
type StatusPing struct {
	Payload pk.Long
}

func (*StatusPing) PacketID() int32 { return StatusPingID }
func (p *StatusPing) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Payload)
}
func (p *StatusPing) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Payload)
}

type LoginStart struct {
	Name pk.String
}

func (*LoginStart) PacketID() int32 { return LoginStartID }
func (p *LoginStart) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Name)
}
func (p *LoginStart) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Name)
}

type EncryptionRequest struct {
	ServerID    pk.String
	PublicKey   pk.ByteArray
	VerifyToken pk.ByteArray
}

func (*EncryptionRequest) PacketID() int32 { return EncryptionRequestID }
func (p *EncryptionRequest) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.ServerID, &p.PublicKey, &p.VerifyToken)
}
func (p *EncryptionRequest) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.ServerID, &p.PublicKey, &p.VerifyToken)
}

type EncryptionResponse struct {
	SharedSecret pk.ByteArray
	VerifyToken  pk.ByteArray
}

func (*EncryptionResponse) PacketID() int32 { return EncryptionResponseID }
func (p *EncryptionResponse) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.SharedSecret, &p.VerifyToken)
}
func (p *EncryptionResponse) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.SharedSecret, &p.VerifyToken)
}

// LoginSuccess moves the connection into play. UUID is the dashed form.
type LoginSuccess struct {
	UUID     pk.String
	Username pk.String
}

func (*LoginSuccess) PacketID() int32 { return LoginSuccessID }
func (p *LoginSuccess) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.UUID, &p.Username)
}
func (p *LoginSuccess) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.UUID, &p.Username)
}

type LoginSetCompression struct {
	Threshold pk.VarInt
}

func (*LoginSetCompression) PacketID() int32 { return LoginSetCompressionID }
func (p *LoginSetCompression) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Threshold)
}
func (p *LoginSetCompression) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Threshold)
}

// LoginDisconnect carries a JSON chat reason.
type LoginDisconnect struct {
	Reason pk.String
}

func (*LoginDisconnect) PacketID() int32 { return LoginDisconnectID }
func (p *LoginDisconnect) WriteTo(w io.Writer) (int64, error) {
	return writeFields(w, &p.Reason)
}
func (p *LoginDisconnect) ReadFrom(r io.Reader) (int64, error) {
	return readFields(r, &p.Reason)
}
