package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Marshal renders the catalog in the format Parse reads.
func (c *Catalog) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(document{Personas: c.Personas()})
	if err != nil {
		return nil, fmt.Errorf("marshal catalog: %w", err)
	}
	return data, nil
}

// WriteFile saves the catalog to path through a temporary file, so a reader
// never sees a partial catalog.
func (c *Catalog) WriteFile(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir catalog dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename catalog: %w", err)
	}
	return nil
}
