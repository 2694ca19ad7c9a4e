package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*RGateConfig, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Merge global config if exists
	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	// Merge project config if exists (highest precedence)
	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// DefaultPaths returns the conventional config locations.
// Global: ~/.rgate/config.json
// Project: .rgate/config.json (relative to cwd)
func DefaultPaths() (global, project string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".rgate", "config.json"), filepath.Join(".rgate", "config.json"), nil
}

// LoadDefault loads configuration from the conventional paths.
func LoadDefault() (*RGateConfig, error) {
	globalPath, projectPath, err := DefaultPaths()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, projectPath)
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Fields absent from the file keep their current value; phase overrides are
// merged per phase name. Missing files are silently skipped. Malformed JSON
// returns an error.
func mergeConfigFile(base *RGateConfig, path string) error {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Missing file is not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	phases := base.Phases
	base.Phases = nil

	// Decoding onto base leaves unspecified fields untouched
	if err := json.Unmarshal(data, base); err != nil {
		base.Phases = phases
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if phases == nil {
		phases = make(map[string]PhaseOverride)
	}
	for name, override := range base.Phases {
		phases[name] = override
	}
	base.Phases = phases

	return nil
}
