// Package brand replaces the client brand the upstream sees.
package brand

import (
	"bytes"

	pk "github.com/Tnze/go-mc/net/packet"

	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/protocol"
)

const (
	ModuleName = "Brand"
	Channel    = "MC|Brand"
)

var Blueprint = module.Blueprint{Name: ModuleName, New: New}

type Module struct {
	cfg *module.Config
}

func New(module.Session, module.Sender) module.Module {
	return &Module{cfg: module.NewConfig(map[string]any{"brand": "vanilla"})}
}

func (m *Module) Config() *module.Config { return m.cfg }

func (m *Module) ToClient(*module.Event) {}

func (m *Module) ToServer(ev *module.Event) {
	if ev.ID != protocol.ServerPluginMessageID {
		return
	}
	data, err := ev.Data()
	if err != nil {
		return
	}
	msg := data.(*protocol.ServerPluginMessage)
	if msg.Channel != Channel {
		return
	}
	var buf bytes.Buffer
	if _, err := pk.String(m.cfg.String("brand")).WriteTo(&buf); err != nil {
		return
	}
	msg.Data = buf.Bytes()
	ev.Modified = true
}
