// internal/config/normalize.go
package config

import (
	"strings"
	"time"

	"github.com/bigbag/eagleboot/internal/firmware"
	"github.com/bigbag/eagleboot/internal/protocol"
)

// Defaults applied by Normalize.
const (
	DefaultBootTimeout  = 2 * time.Second
	DefaultResetTimeout = 10 * time.Second
)

// Normalize fills defaults and canonicalizes enum values.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.FirmwarePath == "" {
		cfg.FirmwarePath = firmware.DefaultPath
	}

	cfg.InitMode = strings.ToLower(cfg.InitMode)
	if cfg.InitMode == "" {
		cfg.InitMode = "first"
	}

	if cfg.BootTimeout == 0 {
		cfg.BootTimeout = DefaultBootTimeout
	}
	if cfg.ResetTimeout == 0 {
		cfg.ResetTimeout = DefaultResetTimeout
	}

	if cfg.Baud == 0 {
		cfg.Baud = protocol.DefaultBaudRate
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}
