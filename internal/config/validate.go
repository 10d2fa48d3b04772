// internal/config/validate.go
package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.InitMode) {
	case "", "first", "second":
	default:
		return fmt.Errorf("init_mode %q: must be first or second", cfg.InitMode)
	}

	if cfg.ATEConfig < 0 {
		return fmt.Errorf("ate_config %d: must not be negative", cfg.ATEConfig)
	}

	if cfg.BootTimeout < 0 {
		return fmt.Errorf("boot_timeout %v: must not be negative", cfg.BootTimeout)
	}
	if cfg.ResetTimeout < 0 {
		return fmt.Errorf("reset_timeout %v: must not be negative", cfg.ResetTimeout)
	}

	if cfg.Baud < 0 {
		return fmt.Errorf("baud %d: must not be negative", cfg.Baud)
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q: must be debug, info, warn or error", cfg.LogLevel)
	}

	// skip_download boots whatever is already in chip memory; an ATE image
	// is never preloaded.
	if cfg.SkipDownload && cfg.ATEConfig != 0 {
		return fmt.Errorf("skip_download cannot be combined with ate_config %d", cfg.ATEConfig)
	}

	return nil
}
