package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds wingui settings. Flags override values from the file.
type Config struct {
	Executable       string `yaml:"executable"`
	Source           string `yaml:"source"`
	Encoding         string `yaml:"encoding"`
	AcceptAgreements bool   `yaml:"accept_agreements"`
	SilentUpgrades   bool   `yaml:"silent_upgrades"`
	LogFile          string `yaml:"log_file"`
	Debug            bool   `yaml:"debug"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Executable:       DefaultExecutable,
		Encoding:         "utf-8",
		AcceptAgreements: true,
		SilentUpgrades:   true,
	}
}

// DefaultConfigPath returns ~/.config/wingui/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wingui", "config.yaml"), nil
}

// LoadConfig reads the config file at path, or the default location
// when path is empty. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Executable == "" {
		cfg.Executable = DefaultExecutable
	}
	return cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
