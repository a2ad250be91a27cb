package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/skinview/internal/skinimage"
	"github.com/Faultbox/skinview/pkg/skin"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no viewer could run with.
func (c *Config) Validate() error {
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("config: viewer size %dx%d must be positive", c.Viewer.Width, c.Viewer.Height)
	}
	if _, err := skin.ParseVariant(c.Skin.Variant); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Viewer.Renderer {
	case "", "opengl", "software":
	default:
		return fmt.Errorf("config: unknown renderer %q", c.Viewer.Renderer)
	}
	switch c.Skin.Blend {
	case "", "overwrite", "over":
	default:
		return fmt.Errorf("config: unknown blend mode %q", c.Skin.Blend)
	}
	if c.Output.Format != "" {
		if _, err := skinimage.ParseFormat(c.Output.Format); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.Camera.MinDistance > c.Camera.MaxDistance {
		return fmt.Errorf("config: min_distance %v exceeds max_distance %v", c.Camera.MinDistance, c.Camera.MaxDistance)
	}
	if _, err := ParseColor(c.Viewer.Background); err != nil {
		return err
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./skinview.yaml",
		filepath.Join(ConfigDir(), "skinview.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Skinview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Skinview")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "skinview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "skinview")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
