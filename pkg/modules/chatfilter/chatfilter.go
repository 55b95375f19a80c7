// Package chatfilter hides clientbound chat lines containing a word.
package chatfilter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/go-mclib/gateway/pkg/chat"
	"github.com/go-mclib/gateway/pkg/module"
	"github.com/go-mclib/gateway/pkg/protocol"
)

const ModuleName = "ChatFilter"

var Blueprint = module.Blueprint{Name: ModuleName, New: New}

type Module struct {
	cfg    *module.Config
	logger *zap.Logger
}

func New(s module.Session, _ module.Sender) module.Module {
	return &Module{
		cfg: module.NewConfig(map[string]any{
			"filter": map[string]any{"enabled": true, "word": ""},
		}),
		logger: s.Logger().Named("chatfilter"),
	}
}

func (m *Module) Config() *module.Config { return m.cfg }

func (m *Module) ToServer(*module.Event) {}

func (m *Module) ToClient(ev *module.Event) {
	if ev.ID != protocol.ClientChatID || !m.cfg.Bool("filter.enabled") {
		return
	}
	word := strings.ToLower(m.cfg.String("filter.word"))
	if word == "" {
		return
	}
	data, err := ev.Data()
	if err != nil {
		return
	}
	text := chat.StripCodes(chat.PlainText(string(data.(*protocol.ClientChat).JSON)))
	if strings.Contains(strings.ToLower(text), word) {
		ev.Canceled = true
		m.logger.Debug("filtered chat", zap.String("text", text))
	}
}
