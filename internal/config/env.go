package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix marks environment variables that override configuration keys.
const EnvPrefix = "MDBOOK_"

// LogEnvVar controls log verbosity and is never treated as a config override.
const LogEnvVar = "MDBOOK_LOG"

// envFiles are tried in order from the book root.
var envFiles = []string{".env", ".env.local"}

// LoadEnvFiles loads .env files from root into the process environment.
// Variables already set are not overwritten. It returns the files loaded.
func LoadEnvFiles(root string) ([]string, error) {
	var loaded []string
	for _, name := range envFiles {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// UpdateFromEnv applies MDBOOK_* overrides from environ (KEY=VALUE pairs,
// as returned by os.Environ). MDBOOK_FOO__BAR_BAZ sets foo.bar-baz. Values
// are parsed as JSON and fall back to plain strings. Object values for the
// book and build tables are merged key by key.
func (c *Config) UpdateFromEnv(environ []string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == LogEnvVar {
			continue
		}
		key, ok := envKey(name)
		if !ok {
			continue
		}
		parsed := parseEnvValue(value)

		if key == "book" || key == "build" {
			if obj, isTable := parsed.(Table); isTable {
				for k, v := range obj {
					c.Set(key+"."+k, v)
				}
				continue
			}
		}
		c.Set(key, parsed)
	}
}

func envKey(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, EnvPrefix)
	if !ok || rest == "" {
		return "", false
	}
	key := strings.ToLower(rest)
	key = strings.ReplaceAll(key, "__", ".")
	key = strings.ReplaceAll(key, "_", "-")
	return key, true
}

func parseEnvValue(value string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(value)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return value
	}
	if v == nil {
		return value
	}
	return Normalize(v)
}
