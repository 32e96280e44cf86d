// Package config loads the terminal settings from an optional YAML file.
//
// Example:
//
//	reader: "ACS ACR122U PICC Interface 00 00"
//	history_file: ~/.pcsc-terminal-history
//	history_size: 1000
//	max_depth: 64
//	auto_response: true
//	log_level: info
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gregLibert/pcsc-terminal/pkg/tlv"
)

// Defaults.
const (
	DefaultReader      = "0"
	DefaultHistoryFile = "~/.pcsc-terminal-history"
	DefaultHistorySize = 1000
)

// Config holds the terminal settings.
type Config struct {
	// Reader is an index into the reader list or an exact reader name.
	Reader string `yaml:"reader"`
	// HistoryFile is where the shell history is persisted. Empty disables it.
	HistoryFile string `yaml:"history_file"`
	HistorySize int    `yaml:"history_size"`
	// MaxDepth bounds the nesting of constructed BER-TLV elements.
	MaxDepth int `yaml:"max_depth"`
	// AutoResponse issues GET RESPONSE on 61XX and re-sends on 6CXX.
	AutoResponse bool `yaml:"auto_response"`
	// LogLevel overrides the default log level of packages whose level is
	// not set in the environment. Empty keeps the environment or warn.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Reader:      DefaultReader,
		HistoryFile: DefaultHistoryFile,
		HistorySize: DefaultHistorySize,
		MaxDepth:    tlv.DefaultMaxDepth,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/pcsc-terminal/config.yaml, or the
// platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "pcsc-terminal", "config.yaml")
}

// Load reads the YAML file at path on top of Default. When optional is set a
// missing file is not an error.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document into cfg, keeping fields the document omits.
// Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history_size must be positive, got %d", c.HistorySize)
	}
	return nil
}

// HistoryPath returns HistoryFile with a leading "~" expanded.
func (c Config) HistoryPath() (string, error) {
	return ExpandHome(c.HistoryFile)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
