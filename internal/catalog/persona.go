package catalog

import "slices"

const (
	// CustomID is the only persona whose system message may be edited at runtime.
	CustomID = "Custom"
	// CreatorTileID identifies the "Persona Creator" tile in the hidden set.
	// It is never a catalog key.
	CreatorTileID = "__persona-creator__"
)

// Persona is one selectable system-prompt configuration.
type Persona struct {
	ID            string   `yaml:"id"`
	Title         string   `yaml:"title"`
	Description   string   `yaml:"description,omitempty"`
	Examples      []string `yaml:"examples,omitempty"`
	Symbol        string   `yaml:"symbol,omitempty"`
	Highlighted   bool     `yaml:"highlighted,omitempty"`
	SystemMessage string   `yaml:"system_message"`
}

func (p Persona) clone() Persona {
	p.Examples = slices.Clone(p.Examples)
	return p
}
