package gateway

import (
	"bytes"
	"strings"

	pk "github.com/Tnze/go-mc/net/packet"
	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/metrics"
	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/protocol"
)

// handleClient processes one packet read from the client.
func (s *Session) handleClient(p pk.Packet) {
	if p.ID == protocol.ServerPluginMessageID {
		var msg protocol.ServerPluginMessage
		if err := p.Scan(&msg); err == nil && string(msg.Channel) == AuthChannel {
			s.handleAuth(msg.Data)
			s.srv.Metrics.RecordPacket(protocol.Serverbound.String(), metrics.Consumed)
			return
		}
	}
	if !s.relaying {
		return
	}

	switch {
	case p.ID == protocol.ServerChatID:
		if s.intercept(p) {
			s.srv.Metrics.RecordPacket(protocol.Serverbound.String(), metrics.Consumed)
			return
		}
	case p.ID == protocol.ServerKeepAliveID:
		s.srv.Metrics.RecordKeepAlive(s.ping.Observe())
	case protocol.IsMovement(p.ID):
		s.tasks.Advance()
	}
	s.forward(protocol.Serverbound, p, s.upstreamOut)
}

// handleAuth runs the auth gate on a side-channel payload. Rejections are
// logged and otherwise ignored; the client is told nothing.
func (s *Session) handleAuth(payload []byte) {
	if s.authenticated {
		s.logger.Debug("ignoring auth message, already authenticated")
		return
	}
	creds, identity, err := s.srv.gate.Verify(s.username, payload)
	s.srv.Metrics.RecordAuth(err == nil)
	if err != nil {
		s.logger.Warn("auth rejected", zap.Error(err))
		return
	}
	s.authenticate(creds, identity)
}

// intercept hands chat starting with CommandPrefix to the dispatcher.
func (s *Session) intercept(p pk.Packet) bool {
	var msg protocol.ServerChat
	if err := p.Scan(&msg); err != nil {
		return false
	}
	text := string(msg.Message)
	if len(text) < len(CommandPrefix) || !strings.EqualFold(text[:len(CommandPrefix)], CommandPrefix) {
		return false
	}
	name := s.commands.Dispatch(text[len(CommandPrefix):])
	s.srv.Metrics.RecordCommand(name)
	s.logger.Debug("command", zap.String("line", text))
	return true
}

// handleUpstream processes one packet read from the upstream.
func (s *Session) handleUpstream(p pk.Packet) {
	switch p.ID {
	case protocol.JoinGameID:
		if !s.transferred && s.transfer(p) {
			return
		}
	case protocol.PlayerListItemID:
		if bytes.Contains(p.Data, s.impersonated[:]) && s.rewriteRoster(p) {
			return
		}
	}
	s.forward(protocol.Clientbound, p, s.clientOut)
}

// transfer forwards the first join game as is and follows it with a
// respawn so the client drops the world it got from the gateway's fake
// join.
func (s *Session) transfer(p pk.Packet) bool {
	var join protocol.JoinGame
	if err := p.Scan(&join); err != nil {
		s.logger.Warn("undecodable join game", zap.Error(err))
		return false
	}
	s.transferred = true
	s.clientOut.enqueue(p)
	s.clientOut.Send(join.Respawn())
	s.Reply("Successfully transferred!")
	s.srv.Metrics.RecordPacket(protocol.Clientbound.String(), metrics.Rewritten)
	s.logger.Info("transferred", zap.Int32("entity", int32(join.EntityID)))
	return true
}

// rewriteRoster replaces the impersonated identity with the client's own
// in a player list update.
func (s *Session) rewriteRoster(p pk.Packet) bool {
	var list protocol.PlayerListItem
	if err := p.Scan(&list); err != nil {
		s.logger.Warn("undecodable player list", zap.Error(err))
		return false
	}
	if list.ReplaceUUID(s.impersonated, s.uuid) == 0 {
		return false
	}
	s.clientOut.Send(&list)
	s.srv.Metrics.RecordPacket(protocol.Clientbound.String(), metrics.Rewritten)
	return true
}

// forward runs p through the module hooks for dir and queues the outcome
// on out.
func (s *Session) forward(dir protocol.Direction, p pk.Packet, out *writer) {
	ev := module.NewEvent(dir, p.ID, p.Data)
	if dir == protocol.Clientbound {
		s.host.ToClient(ev)
	} else {
		s.host.ToServer(ev)
	}
	if ev.Canceled {
		s.srv.Metrics.RecordPacket(dir.String(), metrics.Canceled)
		return
	}
	packet, err := ev.Packet()
	if err != nil {
		s.logger.Warn("re-encode failed, forwarding original",
			zap.String("packet", ev.Name),
			zap.Error(err),
		)
		packet = p
	}
	outcome := metrics.Forwarded
	if ev.Modified {
		outcome = metrics.Rewritten
	}
	s.srv.Metrics.RecordPacket(dir.String(), outcome)
	out.enqueue(packet)
}
