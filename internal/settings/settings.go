// Package settings implements the two-tier settings store (global
// ~/.chalet/config.json plus a project-local .chaletrc) that backs the
// `settings get/set/unset/getkeys` commands, grounded on the reference tool's
// xdg-located config directory convention.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenPeeDeeP/xdg"
)

const vendor = "" // no vendor subdirectory, matching the project's non-legacy config path

// GlobalDir returns the XDG config-home directory chalet uses for the
// global settings file, honoring CHALET_CONFIG_DIR for overrides.
func GlobalDir() string {
	if d := os.Getenv("CHALET_CONFIG_DIR"); d != "" {
		return d
	}
	dirs := xdg.New(vendor, "chalet")
	return dirs.ConfigHome()
}

// GlobalPath returns the path to the global settings file.
func GlobalPath() string {
	return filepath.Join(GlobalDir(), "config.json")
}

// Store is a flat, dot-keyed settings document (e.g. "toolchains.llvm.path").
type Store struct {
	path string
	data map[string]any
}

// Load reads path, returning an empty Store if the file does not exist yet.
func Load(path string) (*Store, error) {
	s := &Store{path: path, data: map[string]any{}}
	b, err := os.ReadFile(path) // #nosec G304 - user-specified or XDG-resolved settings path
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &s.data); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	return s, nil
}

// Get returns the dot-path key's value, or ok=false if unset.
func (s *Store) Get(key string) (any, bool) {
	cur := any(s.data)
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at the dot-path key, creating intermediate objects.
func (s *Store) Set(key string, value any) {
	parts := strings.Split(key, ".")
	m := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Unset removes the dot-path key if present.
func (s *Store) Unset(key string) {
	parts := strings.Split(key, ".")
	m := s.data
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

// Keys returns every dot-path key present in the store, sorted.
func (s *Store) Keys() []string {
	var out []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			full := k
			if prefix != "" {
				full = prefix + "." + k
			}
			if nested, ok := v.(map[string]any); ok {
				walk(full, nested)
				continue
			}
			out = append(out, full)
		}
	}
	walk("", s.data)
	sort.Strings(out)
	return out
}

// Save persists the store to its path, creating parent directories.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o644)
}

// Merged loads the global store and, if localPath is non-empty, layers a
// project-local store's keys on top (local wins on conflict).
func Merged(localPath string) (*Store, error) {
	global, err := Load(GlobalPath())
	if err != nil {
		return nil, err
	}
	if localPath == "" {
		return global, nil
	}
	local, err := Load(localPath)
	if err != nil {
		return nil, err
	}
	for _, k := range local.Keys() {
		v, _ := local.Get(k)
		global.Set(k, v)
	}
	global.path = localPath
	return global, nil
}
