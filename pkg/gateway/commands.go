package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-mclib/gateway/pkg/chat"
	"github.com/go-mclib/gateway/pkg/module"
)

// CommandDispatcher runs the in-chat gateway commands against one
// session's module host. Replies go to the issuing client only.
type CommandDispatcher struct {
	host  *module.Host
	reply func(string)
}

func NewCommandDispatcher(host *module.Host, reply func(string)) *CommandDispatcher {
	return &CommandDispatcher{host: host, reply: reply}
}

// Dispatch runs one command line, without the prefix, and returns the
// command name it resolved to ("unknown" if none).
func (d *CommandDispatcher) Dispatch(line string) string {
	args := strings.Fields(line)
	if len(args) == 0 {
		d.reply("§cUnknown command.")
		return "unknown"
	}
	cmd := strings.ToLower(args[0])
	switch cmd {
	case "modules":
		d.modules()
	case "toggle", "t":
		cmd = "toggle"
		d.toggle(args[1:])
	case "get":
		d.get(args[1:])
	case "set":
		d.set(args[1:])
	default:
		d.reply("§cUnknown command.")
		return "unknown"
	}
	return cmd
}

func (d *CommandDispatcher) modules() {
	list := d.host.List()
	names := make([]string, len(list))
	for i, st := range list {
		names[i] = chat.Toggle(st.Name, st.Active)
	}
	d.reply("Modules: " + strings.Join(names, ", "))
}

func (d *CommandDispatcher) toggle(args []string) {
	if len(args) < 1 {
		d.reply("§cUsage: " + CommandPrefix + "toggle <module>")
		return
	}
	name, on, err := d.host.Toggle(args[0])
	switch {
	case errors.Is(err, module.ErrModuleFault):
		d.reply("§c" + name + " failed to start.")
	case err != nil:
		d.reply("§cModule not found!")
	case on:
		d.reply("§aEnabled " + name + "!")
	default:
		d.reply("§cDisabled " + name + "!")
	}
}

func (d *CommandDispatcher) get(args []string) {
	if len(args) < 1 {
		d.reply("§cUsage: " + CommandPrefix + "get <module>")
		return
	}
	cfg, err := d.host.Config(args[0])
	if err != nil {
		d.replyError(err)
		return
	}
	out, err := json.Marshal(cfg)
	if err != nil {
		d.reply("§c" + err.Error())
		return
	}
	d.reply(string(out))
}

func (d *CommandDispatcher) set(args []string) {
	if len(args) < 3 {
		d.reply("§cUsage: " + CommandPrefix + "set <module> <path> <value>")
		return
	}
	literal := strings.Join(args[2:], " ")
	if err := d.host.SetConfig(args[0], args[1], parseLiteral(literal)); err != nil {
		d.replyError(err)
		return
	}
	d.reply(fmt.Sprintf("§aSet %s to %s!", args[1], literal))
}

func (d *CommandDispatcher) replyError(err error) {
	switch {
	case errors.Is(err, module.ErrModuleNotFound):
		d.reply("§cModule not found.")
	case errors.Is(err, module.ErrNoConfig):
		d.reply("§cModule has no config.")
	case errors.Is(err, module.ErrInvalidType):
		d.reply("§cInvalid type.")
	case errors.Is(err, module.ErrTypeMismatch):
		d.reply("§cIncorrect type.")
	case errors.Is(err, module.ErrPathTooDeep):
		d.reply("§cPath too deep.")
	default:
		d.reply("§c" + err.Error())
	}
}

// parseLiteral reads a JSON literal; anything that is not valid JSON is
// taken as a bare string.
func parseLiteral(literal string) any {
	var v any
	if err := json.Unmarshal([]byte(literal), &v); err != nil {
		return literal
	}
	return v
}
