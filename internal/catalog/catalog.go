// Package catalog holds the ordered set of personas offered to a conversation.
//
// A Catalog is owned application state: main builds one and hands the pointer
// to whoever needs it. The only mutation is the Custom persona's system
// message, which lives for the lifetime of the process and is never written
// back to disk.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	ErrUnknownPersona = errors.New("catalog: unknown persona")
	ErrNotEditable    = errors.New("catalog: persona system message is not editable")
	ErrMissingCustom  = errors.New("catalog: missing Custom persona")
)

// Catalog is an ordered collection of personas. Safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]Persona
}

type document struct {
	Personas []Persona `yaml:"personas"`
}

// Default returns a fresh copy of the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultsYAML)
}

// LoadFile reads a catalog from a YAML file with the same layout as the built-in one.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Personas)
}

// New builds a catalog from personas in display order.
func New(personas []Persona) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(personas)),
		byID:  make(map[string]Persona, len(personas)),
	}
	for i, p := range personas {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("catalog: persona %d has no id", i)
		case p.ID == CreatorTileID:
			return nil, fmt.Errorf("catalog: id %q is reserved", p.ID)
		case p.Title == "":
			return nil, fmt.Errorf("catalog: persona %q has no title", p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate persona %q", p.ID)
		}
		c.order = append(c.order, p.ID)
		c.byID[p.ID] = p.clone()
	}
	if _, ok := c.byID[CustomID]; !ok {
		return nil, ErrMissingCustom
	}
	return c, nil
}

// IDs returns persona ids in catalog order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Lookup returns a copy of the persona with the given id.
func (c *Catalog) Lookup(id string) (Persona, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	if !ok {
		return Persona{}, false
	}
	return p.clone(), true
}

// Personas returns copies of every persona in catalog order.
func (c *Catalog) Personas() []Persona {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Persona, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id].clone())
	}
	return out
}

// SetSystemMessage replaces the system message of the Custom persona.
func (c *Catalog) SetSystemMessage(id, msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPersona, id)
	}
	if id != CustomID {
		return fmt.Errorf("%w: %q", ErrNotEditable, id)
	}
	p.SystemMessage = msg
	c.byID[id] = p
	return nil
}

// Clone returns an independent deep copy.
func (c *Catalog) Clone() *Catalog {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := &Catalog{
		order: append([]string(nil), c.order...),
		byID:  make(map[string]Persona, len(c.byID)),
	}
	for id, p := range c.byID {
		out.byID[id] = p.clone()
	}
	return out
}
