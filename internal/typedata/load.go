package typedata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// file is the on-disk layout shared with the search engine's config.
type file struct {
	Types []TypeData `json:"Types" yaml:"Types"`
}

// Load reads a type table from a .json, .yaml or .yml file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read type table: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(bytes.NewReader(data))
	default:
		return ParseJSON(bytes.NewReader(data))
	}
}

// ParseJSON decodes a {"Types": [...]} document.
func ParseJSON(r io.Reader) (*Table, error) {
	var f file
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse type table: %w", err)
	}
	return fromFile(f)
}

// ParseYAML decodes the YAML form of the same document.
func ParseYAML(r io.Reader) (*Table, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse type table: %w", err)
	}
	return fromFile(f)
}

func fromFile(f file) (*Table, error) {
	if len(f.Types) == 0 {
		return nil, fmt.Errorf("type table has no Types")
	}
	return NewTable(f.Types)
}
