// internal/config/config.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// ---- firmware ----
	FirmwarePath string `yaml:"firmware_path"`
	SkipDownload bool   `yaml:"skip_download"`

	// ---- bring-up ----
	InitMode     string        `yaml:"init_mode"`  // first | second
	ATEConfig    int           `yaml:"ate_config"` // 0 = normal operation
	BootTimeout  time.Duration `yaml:"boot_timeout"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`

	// ---- messaging ----
	NoTxAMPDU bool `yaml:"no_txampdu"`
	NoRxAMPDU bool `yaml:"no_rxampdu"`

	// ---- bridge ----
	Port string `yaml:"port"` // empty = auto-detect
	Baud int    `yaml:"baud"`

	LogLevel string `yaml:"log_level"`
}

// Load reads a YAML config file. Unknown keys are rejected.
// The result is validated and normalized.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes, validates and normalizes a YAML document.
// An empty document yields the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	Normalize(cfg)
	return cfg, nil
}

// Level maps log_level to a slog level. Call after Normalize.
func (c *Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
