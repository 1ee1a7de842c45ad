// Package config loads YAML, TOML or JSON configuration files with
// environment variable expansion.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf picks the syntax from the file extension. Unknown extensions are
// read as YAML.
func FormatOf(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Load loads configuration from filename with environment variable
// expansion, then validates it when target implements Validator.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}
	return Parse(FormatOf(filename), data, target)
}

// Parse decodes data in the given format into target and validates it.
func Parse[T any](format Format, data []byte, target *T) error {
	expanded := os.ExpandEnv(string(data))

	var err error
	switch format {
	case FormatTOML:
		_, err = toml.Decode(expanded, target)
	case FormatJSON:
		err = json.Unmarshal([]byte(expanded), target)
	default:
		err = yaml.Unmarshal([]byte(expanded), target)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s config: %w", format, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// LoadWithDefaults loads configuration with fallback to a default file.
func LoadWithDefaults[T any](filename, defaultFile string, target *T) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		if defaultFile != "" {
			return Load(defaultFile, target)
		}
		return fmt.Errorf("config file not found: %s", filename)
	}
	return Load(filename, target)
}
