package module

import "strings"

// Registry is the read-only catalogue of blueprints, built once at startup
// and shared by every session.
type Registry struct {
	blueprints []Blueprint
	byName     map[string]int
}

// NewRegistry builds a registry. Panics on duplicate names, which compare
// case-insensitively.
func NewRegistry(blueprints ...Blueprint) *Registry {
	r := &Registry{byName: make(map[string]int, len(blueprints))}
	for _, bp := range blueprints {
		key := strings.ToLower(bp.Name)
		if _, exists := r.byName[key]; exists {
			panic("module already registered: " + bp.Name)
		}
		if bp.New == nil {
			panic("module has no factory: " + bp.Name)
		}
		r.byName[key] = len(r.blueprints)
		r.blueprints = append(r.blueprints, bp)
	}
	return r
}

// Lookup returns the blueprint named name, in any case.
func (r *Registry) Lookup(name string) (Blueprint, bool) {
	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return Blueprint{}, false
	}
	return r.blueprints[i], true
}

// Names returns blueprint names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.blueprints))
	for i, bp := range r.blueprints {
		names[i] = bp.Name
	}
	return names
}

func (r *Registry) Len() int { return len(r.blueprints) }
