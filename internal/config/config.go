// Package config is the read-only view of book.toml handed to every stage.
//
// The configuration is kept as a generic tree so that tables owned by
// external preprocessors and renderers survive untouched. Typed views exist
// for the [book] and [build] tables the pipeline itself consumes.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up in the book root.
const FileName = "book.toml"

// Config wraps the configuration tree.
type Config struct {
	root Table
}

// Default returns an empty configuration; every typed view falls back to
// its defaults.
func Default() *Config {
	return &Config{root: Table{}}
}

// FromTable wraps an existing tree. Values are normalized first.
func FromTable(t Table) *Config {
	if t == nil {
		return Default()
	}
	return &Config{root: Normalize(t).(Table)}
}

// FromString parses TOML source.
func FromString(src string) (*Config, error) {
	var raw map[string]any
	if _, err := toml.Decode(src, &raw); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return FromTable(raw), nil
}

// Load reads and parses a TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}
	cfg, err := FromString(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Tree exposes the underlying tree. Callers must not mutate it during a build.
func (c *Config) Tree() Table {
	return c.root
}

// Get looks up a dotted path.
func (c *Config) Get(key string) (any, bool) {
	return c.root.Get(key)
}

// Set inserts a value at a dotted path.
func (c *Config) Set(key string, value any) {
	c.root.Insert(key, value)
}

// Delete removes a dotted path.
func (c *Config) Delete(key string) (any, bool) {
	return c.root.Delete(key)
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	return &Config{root: c.root.Clone()}
}

// MarshalJSON encodes the whole tree.
func (c *Config) MarshalJSON() ([]byte, error) {
	if c == nil || c.root == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.root)
}

// UnmarshalJSON decodes a tree, keeping integers as int64.
func (c *Config) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*c = *FromTable(raw)
	return nil
}

// WriteTOML encodes the tree as TOML.
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c.root)
}
