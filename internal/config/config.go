package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds defaults for issuance. Command-line flags override it.
//
// File location: ~/.config/certforge/config.yml (or $XDG_CONFIG_HOME/certforge/config.yml)
type Config struct {
	OutDir            string   `yaml:"out_dir"`
	KeyBits           int      `yaml:"key_bits"`
	RootKeyBits       int      `yaml:"root_key_bits"`
	Hash              string   `yaml:"hash"`
	RootValidityYears int      `yaml:"root_validity_years"`
	LeafValidityDays  int      `yaml:"leaf_validity_days"`
	DNSNames          []string `yaml:"dns_names"`
	LogLevel          string   `yaml:"log_level"`
}

// OutDirEnv overrides out_dir when set.
const OutDirEnv = "CERTFORGE_OUT_DIR"

func Default() Config {
	return Config{
		OutDir:            "keys",
		KeyBits:           2048,
		RootKeyBits:       4096,
		Hash:              "sha512",
		RootValidityYears: 40,
		LeafValidityDays:  365,
		DNSNames:          []string{"localhost"},
		LogLevel:          "warn",
	}
}

func Path() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "certforge", "config.yml"), nil
}

// Load reads config.yml if present. If missing, returns Default() with nil error.
func Load() (Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, err
		}
		data = nil
	}

	if data != nil {
		cfg, err = Parse(data)
		if err != nil {
			return Default(), fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if dir := strings.TrimSpace(os.Getenv(OutDirEnv)); dir != "" {
		cfg.OutDir = dir
	}
	return cfg, nil
}

// Parse decodes a config document over Default(). Unknown keys are rejected
// so typos surface instead of silently falling back to defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), err
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Validate checks ranges only; key sizes and hash names are checked again
// when a request is built.
func (c Config) Validate() error {
	if c.KeyBits < 0 || c.RootKeyBits < 0 {
		return fmt.Errorf("key_bits and root_key_bits must be positive")
	}
	if c.RootValidityYears < 0 {
		return fmt.Errorf("root_validity_years must be non-negative, got %d", c.RootValidityYears)
	}
	if c.LeafValidityDays < 0 {
		return fmt.Errorf("leaf_validity_days must be non-negative, got %d", c.LeafValidityDays)
	}
	return nil
}
