// Package antiafk swings the player's arm upstream on a tick interval so
// the server does not consider them idle.
package antiafk

import (
	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/protocol"
)

const ModuleName = "AntiAFK"

var Blueprint = module.Blueprint{Name: ModuleName, New: New}

type Module struct {
	session  module.Session
	upstream module.Sender
	cfg      *module.Config
	stopped  bool
}

func New(s module.Session, upstream module.Sender) module.Module {
	m := &Module{
		session:  s,
		upstream: upstream,
		cfg:      module.NewConfig(map[string]any{"interval": 20}),
	}
	m.arm()
	return m
}

// arm schedules the next swing interval ticks from now.
func (m *Module) arm() {
	m.session.Schedule(m.swing, max(int(m.cfg.Number("interval"))-1, 0))
}

func (m *Module) swing() {
	if m.stopped {
		return
	}
	m.upstream.Send(&protocol.Animation{})
	m.arm()
}

func (m *Module) Config() *module.Config { return m.cfg }

func (m *Module) ToClient(*module.Event) {}
func (m *Module) ToServer(*module.Event) {}

func (m *Module) Close() { m.stopped = true }
