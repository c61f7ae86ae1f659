// Package config provides YAML-based configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is an interface for configuration validation.
type Validator interface {
	Validate() error
}

// Load reads a YAML config file into target, expanding ${VAR} references
// from the environment first. If target implements Validator, the loaded
// configuration is validated before returning.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadIfExists loads filename when it is present and leaves target untouched
// otherwise, so callers can run on compiled-in defaults without a config file.
func LoadIfExists[T any](filename string, target *T) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil
	}
	return Load(filename, target)
}
