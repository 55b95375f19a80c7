package module

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// MaxPathDepth bounds how many segments a dotted config path may have.
const MaxPathDepth = 8

var (
	ErrTypeMismatch = errors.New("incorrect type")
	ErrInvalidType  = errors.New("invalid type")
	ErrPathTooDeep  = errors.New("config path too deep")
)

// Kind is the primitive kind of a config value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	}
	return "invalid"
}

// KindOf classifies v. Anything that is not a boolean, number or string
// is KindInvalid.
func KindOf(v any) Kind {
	switch v.(type) {
	case bool:
		return KindBool
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case string:
		return KindString
	}
	return KindInvalid
}

// Config is a module's settings: nested string-keyed maps whose leaves
// are booleans, numbers (stored as float64) or strings.
type Config struct {
	mu   sync.RWMutex
	root map[string]any
}

// NewConfig copies values into a config. Nested maps become sections,
// integer leaves become float64 and leaves of any other kind are dropped.
func NewConfig(values map[string]any) *Config {
	return &Config{root: copySection(values)}
}

func copySection(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if section, ok := v.(map[string]any); ok {
			out[k] = copySection(section)
			continue
		}
		if v = normalize(v); v != nil {
			out[k] = v
		}
	}
	return out
}

func normalize(v any) any {
	switch n := v.(type) {
	case bool, string, float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return nil
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, ErrTypeMismatch
	}
	keys := strings.SplitN(path, ".", MaxPathDepth+1)
	if len(keys) > MaxPathDepth {
		return nil, ErrPathTooDeep
	}
	return keys, nil
}

// lookup walks to the section holding the last key. Callers hold mu.
func (c *Config) lookup(keys []string) (map[string]any, bool) {
	section := c.root
	for _, k := range keys[:len(keys)-1] {
		next, ok := section[k].(map[string]any)
		if !ok {
			return nil, false
		}
		section = next
	}
	return section, true
}

// Get returns the value at a dotted path.
func (c *Config) Get(path string) (any, bool) {
	keys, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	section, ok := c.lookup(keys)
	if !ok {
		return nil, false
	}
	v, ok := section[keys[len(keys)-1]]
	return v, ok
}

// Set replaces the primitive at a dotted path. The path must already hold a
// primitive of the same kind as value; sections cannot be replaced.
func (c *Config) Set(path string, value any) error {
	kind := KindOf(value)
	if kind == KindInvalid {
		return ErrInvalidType
	}
	keys, err := splitPath(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	section, ok := c.lookup(keys)
	if !ok {
		return fmt.Errorf("%w: %s does not exist", ErrTypeMismatch, path)
	}
	key := keys[len(keys)-1]
	current, ok := section[key]
	if !ok {
		return fmt.Errorf("%w: %s does not exist", ErrTypeMismatch, path)
	}
	if have := KindOf(current); have != kind {
		return fmt.Errorf("%w: %s is a %s, not a %s", ErrTypeMismatch, path, have, kind)
	}
	section[key] = normalize(value)
	return nil
}

func (c *Config) Bool(path string) bool {
	v, _ := c.Get(path)
	b, _ := v.(bool)
	return b
}

func (c *Config) Number(path string) float64 {
	v, _ := c.Get(path)
	n, _ := v.(float64)
	return n
}

func (c *Config) String(path string) string {
	v, _ := c.Get(path)
	s, _ := v.(string)
	return s
}

func (c *Config) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(c.root)
}
