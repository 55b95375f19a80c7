// Package whitelist holds the set of player identities allowed to
// authenticate through the gateway.
package whitelist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

var identityPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Normalize lowercases an identity and strips its dashes, so
// "AB12-..." and "ab12..." compare equal.
func Normalize(identity string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(identity)), "-", "")
}

// Valid reports whether a normalized identity is a 128-bit hex string.
func Valid(normalized string) bool {
	return identityPattern.MatchString(normalized)
}

// Set is an immutable set of normalized identities.
type Set struct {
	entries map[string]struct{}
}

// New builds a set from raw identity strings. Blank entries are skipped.
func New(identities ...string) *Set {
	s := &Set{entries: make(map[string]struct{}, len(identities))}
	for _, id := range identities {
		if id = Normalize(id); id != "" {
			s.entries[id] = struct{}{}
		}
	}
	return s
}

// Parse reads newline-delimited identities.
func Parse(r io.Reader) (*Set, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		ids = append(ids, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read whitelist: %w", err)
	}
	return New(ids...), nil
}

// Load reads the whitelist file at path. A missing file is created empty
// and yields an empty set.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			return nil, fmt.Errorf("create whitelist: %w", err)
		}
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open whitelist: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Contains reports whether identity, in any case and with or without
// dashes, is in the set.
func (s *Set) Contains(identity string) bool {
	if s == nil {
		return false
	}
	_, ok := s.entries[Normalize(identity)]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}
