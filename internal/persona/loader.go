package persona

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// FromReader parses and validates a single persona from YAML.
// The reader is consumed entirely; the caller is responsible for closing it.
func FromReader(r io.Reader) (*Persona, error) {
	var p Persona
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // reject unknown keys to catch typos
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("persona: decode yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("persona: invalid persona %q: %w", p.ID, err)
	}
	return &p, nil
}

// LoadFile reads and parses one persona YAML file from disk.
// Returns a descriptive error if the file cannot be opened or parsed.
func LoadFile(path string) (*Persona, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("persona: open persona file %q: %w", path, err)
	}
	defer f.Close()

	p, err := FromReader(f)
	if err != nil {
		return nil, fmt.Errorf("persona: parse persona file %q: %w", path, err)
	}
	return p, nil
}

// LoadDir loads every persona file directly inside dir. Files ending in
// .yaml or .yml are loaded; subdirectories and other files are ignored.
// Errors from individual files are collected and joined so a broken
// directory reports every problem at once.
func LoadDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("persona: read persona directory %q: %w", dir, err)
	}

	var (
		personas []*Persona
		errs     []error
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
		default:
			continue
		}
		p, err := LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		personas = append(personas, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return NewSet(personas...)
}

// Set is an immutable collection of personas keyed by ID.
type Set struct {
	byID map[string]*Persona
	ids  []string
}

// NewSet builds a [Set] from the given personas. Nil entries are skipped;
// duplicate IDs are an error.
func NewSet(personas ...*Persona) (*Set, error) {
	s := &Set{byID: make(map[string]*Persona, len(personas))}
	for _, p := range personas {
		if p == nil {
			continue
		}
		if _, dup := s.byID[p.ID]; dup {
			return nil, fmt.Errorf("persona: duplicate persona id %q", p.ID)
		}
		s.byID[p.ID] = p
		s.ids = append(s.ids, p.ID)
	}
	slices.Sort(s.ids)
	return s, nil
}

// Get returns the persona with the given ID, or false when absent.
func (s *Set) Get(id string) (*Persona, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.byID[id]
	return p, ok
}

// IDs returns all persona IDs in sorted order. The returned slice is a copy.
func (s *Set) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return ids
}

// Len returns the number of personas in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}
