package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// Config holds the CLI configuration.
type Config struct {
	// WildcardDir is the primary directory searched for wildcard files.
	WildcardDir string `json:"wildcard_dir"`

	// FallbackDir is consulted when a wildcard pattern matches nothing under
	// WildcardDir. Empty disables the fallback.
	FallbackDir string `json:"fallback_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// DatabasePath is the SQLite database used for saved variable contexts.
	DatabasePath string `json:"database_path"`

	// AllowOverflow controls whether deck-mode brackets may repeat choices
	// once every unique option has appeared.
	AllowOverflow bool `json:"allow_overflow"`

	// HideComments strips ##...## blocks from the output after their
	// variable assignments have been applied.
	HideComments bool `json:"hide_comments"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		WildcardDir:   "./wildcards",
		FallbackDir:   "",
		LogLevel:      "info",
		DatabasePath:  "./data/promptweave.db?_journal_mode=WAL&_busy_timeout=5000",
		AllowOverflow: true,
		HideComments:  true,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Warn instead of failing; the CLI can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}
