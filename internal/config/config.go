// Package config loads server settings from an optional YAML file with
// CONTEXT101_* environment overrides on top. Precedence: defaults,
// then file, then environment, then command-line flags (applied by the
// caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Content source selection.
const (
	SourceAuto   = "auto" // remote with local fallback when a dir is set
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Store backend selection.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the full server configuration.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`

	Docs struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"docs"`

	// Course pins the server to a single course id. Empty means
	// unlocked.
	Course string `yaml:"course"`

	Content struct {
		Source string `yaml:"source"` // auto | remote | local
		Dir    string `yaml:"dir"`    // local courses directory
	} `yaml:"content"`

	Store struct {
		Backend string `yaml:"backend"` // file | sqlite
		Path    string `yaml:"path"`
	} `yaml:"store"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	var c Config
	c.Content.Source = SourceAuto
	c.Store.Backend = BackendFile
	c.Log.Level = "info"
	return c
}

// DefaultPath is ~/.context101/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".context101", "config.yaml"), nil
}

// Load reads configuration from path, then applies environment
// overrides. A missing file is not an error; the defaults carry.
func Load(path string) (Config, error) {
	c := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return c, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return c, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	c.applyEnv()
	return c, c.Validate()
}

// applyEnv layers CONTEXT101_* variables over the loaded values.
func (c *Config) applyEnv() {
	setFromEnv := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setFromEnv(&c.API.BaseURL, "CONTEXT101_API_URL")
	setFromEnv(&c.Docs.BaseURL, "CONTEXT101_DOCS_URL")
	setFromEnv(&c.Course, "CONTEXT101_COURSE")
	setFromEnv(&c.Content.Source, "CONTEXT101_CONTENT_SOURCE")
	setFromEnv(&c.Content.Dir, "CONTEXT101_CONTENT_DIR")
	setFromEnv(&c.Store.Backend, "CONTEXT101_STORE_BACKEND")
	setFromEnv(&c.Store.Path, "CONTEXT101_STORE_PATH")
	setFromEnv(&c.Log.Level, "CONTEXT101_LOG_LEVEL")
}

// Validate checks enum fields and cross-field requirements.
func (c *Config) Validate() error {
	switch c.Content.Source {
	case SourceAuto, SourceRemote, SourceLocal:
	default:
		return fmt.Errorf("invalid content source %q (want auto, remote, or local)", c.Content.Source)
	}
	if c.Content.Source == SourceLocal && c.Content.Dir == "" {
		return fmt.Errorf("content source %q requires a content dir", SourceLocal)
	}
	switch c.Store.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("invalid store backend %q (want file or sqlite)", c.Store.Backend)
	}
	return nil
}

// Write saves the configuration to path, creating parent directories.
func (c Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
