package module

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrNoConfig       = errors.New("module has no config")
	ErrModuleFault    = errors.New("module failed to start")
)

// Status is a blueprint name and whether the session has it enabled.
type Status struct {
	Name   string
	Active bool
}

type instance struct {
	name   string
	module Module
}

// Host owns one session's enabled module instances, in the order they
// were enabled. It is not safe for concurrent use; the session's event
// loop is its only caller.
type Host struct {
	registry  *Registry
	session   Session
	upstream  Sender
	logger    *zap.Logger
	instances []*instance

	// OnFault is called with the module name after a hook panics and the
	// instance has been disabled.
	OnFault func(name string)
}

func NewHost(r *Registry, s Session, upstream Sender) *Host {
	return &Host{
		registry: r,
		session:  s,
		upstream: upstream,
		logger:   s.Logger(),
	}
}

func (h *Host) find(name string) int {
	for i, inst := range h.instances {
		if strings.EqualFold(inst.name, name) {
			return i
		}
	}
	return -1
}

// List returns every blueprint with its state for this session.
func (h *Host) List() []Status {
	names := h.registry.Names()
	out := make([]Status, len(names))
	for i, name := range names {
		out[i] = Status{Name: name, Active: h.find(name) >= 0}
	}
	return out
}

// Active returns the names of enabled instances in hook order.
func (h *Host) Active() []string {
	names := make([]string, len(h.instances))
	for i, inst := range h.instances {
		names[i] = inst.name
	}
	return names
}

// Toggle disables the named module if the session has it enabled and
// enables it otherwise. It returns the canonical name and the new state.
func (h *Host) Toggle(name string) (string, bool, error) {
	if i := h.find(name); i >= 0 {
		inst := h.instances[i]
		h.remove(i)
		return inst.name, false, nil
	}
	bp, ok := h.registry.Lookup(name)
	if !ok {
		return "", false, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	var m Module
	if !h.safely(bp.Name, "new", func() { m = bp.New(h.session, h.upstream) }) || m == nil {
		if h.OnFault != nil {
			h.OnFault(bp.Name)
		}
		return bp.Name, false, fmt.Errorf("%w: %s", ErrModuleFault, bp.Name)
	}
	h.instances = append(h.instances, &instance{name: bp.Name, module: m})
	return bp.Name, true, nil
}

func (h *Host) remove(i int) {
	inst := h.instances[i]
	h.instances = append(h.instances[:i:i], h.instances[i+1:]...)
	if c, ok := inst.module.(Closer); ok {
		h.safely(inst.name, "close", c.Close)
	}
}

// Config returns the config of an enabled module.
func (h *Host) Config(name string) (*Config, error) {
	i := h.find(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	c, ok := h.instances[i].module.(Configurable)
	if !ok || c.Config() == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoConfig, h.instances[i].name)
	}
	return c.Config(), nil
}

// SetConfig sets one primitive in an enabled module's config.
func (h *Host) SetConfig(name, path string, value any) error {
	cfg, err := h.Config(name)
	if err != nil {
		return err
	}
	return cfg.Set(path, value)
}

// ToClient runs every instance's ToClient hook in order.
func (h *Host) ToClient(ev *Event) {
	h.dispatch(ev, "toClient", Module.ToClient)
}

// ToServer runs every instance's ToServer hook in order.
func (h *Host) ToServer(ev *Event) {
	h.dispatch(ev, "toServer", Module.ToServer)
}

func (h *Host) dispatch(ev *Event, hook string, call func(Module, *Event)) {
	if len(h.instances) == 0 {
		return
	}
	snapshot := append([]*instance(nil), h.instances...)
	var faulted []*instance
	for _, inst := range snapshot {
		modified, canceled := ev.Modified, ev.Canceled
		if !h.safely(inst.name, hook, func() { call(inst.module, ev) }) {
			faulted = append(faulted, inst)
		}
		// a hook may add flags but never clear another hook's
		ev.Modified = ev.Modified || modified
		ev.Canceled = ev.Canceled || canceled
	}
	for _, inst := range faulted {
		for i, cur := range h.instances {
			if cur == inst {
				h.remove(i)
				break
			}
		}
		if h.OnFault != nil {
			h.OnFault(inst.name)
		}
	}
}

// safely runs fn and reports whether it returned without panicking.
func (h *Host) safely(name, hook string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("module hook panicked, disabling",
				zap.String("module", name),
				zap.String("hook", hook),
				zap.String("panic", fmt.Sprint(r)),
			)
			ok = false
		}
	}()
	fn()
	return true
}

// Close tears down every instance.
func (h *Host) Close() {
	for len(h.instances) > 0 {
		h.remove(len(h.instances) - 1)
	}
}
