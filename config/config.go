// Package config loads the host-level Config (signing key, defaults) the
// CLI and any long-lived process reads at startup, via
// gopkg.in/yaml.v3 — a transitive dependency of the teacher's own
// go.mod, promoted here to a direct, actively-imported one.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-serializable configuration spec §4.14 describes.
type Config struct {
	SigningKeyHex   string  `yaml:"signingKeyHex"`
	DefaultStrength float64 `yaml:"defaultStrength"`
	DefaultECCBytes int     `yaml:"defaultEccBytes"`
	DefaultProfile  Profile `yaml:"defaultProfile"`
}

// Profile mirrors payload.Profile in a YAML-friendly shape, avoiding an
// import cycle between config and payload (payload never needs config).
type Profile struct {
	LegalName     string `yaml:"legalName"`
	DisplayName   string `yaml:"displayName"`
	CopyrightYear int    `yaml:"copyrightYear"`
	PrimarySource string `yaml:"primarySource"`
}

// Default returns the library's baked-in defaults (strength 0.15, ecc 8
// bytes, no signing key configured).
func Default() Config {
	return Config{
		DefaultStrength: 0.15,
		DefaultECCBytes: 8,
	}
}

// Load reads and parses a YAML config file at path, filling in defaults
// for zero-valued fields.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// SigningKey decodes the configured hex signing key, or returns nil if
// none is configured (the embed pipeline then proceeds unsigned, per
// spec §7's SignerUnconfigured being skippable).
func (c Config) SigningKey() ([]byte, error) {
	if c.SigningKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.SigningKeyHex)
	if err != nil {
		return nil, fmt.Errorf("config: signingKeyHex is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("config: signingKeyHex must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
