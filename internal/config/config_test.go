package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}

	if cfg.FirmwarePath != "/lib/firmware" {
		t.Errorf("FirmwarePath = %q, want /lib/firmware", cfg.FirmwarePath)
	}
	if cfg.InitMode != "first" {
		t.Errorf("InitMode = %q, want first", cfg.InitMode)
	}
	if cfg.BootTimeout != 2*time.Second || cfg.ResetTimeout != 10*time.Second {
		t.Errorf("timeouts = %v/%v, want 2s/10s", cfg.BootTimeout, cfg.ResetTimeout)
	}
	if cfg.Baud != 921600 {
		t.Errorf("Baud = %d, want 921600", cfg.Baud)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v, want INFO", cfg.Level())
	}
}

func TestParse_AllKeys(t *testing.T) {
	doc := `
firmware_path: /opt/eagle
skip_download: false
init_mode: Second
ate_config: 6
boot_timeout: 500ms
reset_timeout: 3s
no_txampdu: true
no_rxampdu: true
port: /dev/ttyUSB1
baud: 115200
log_level: DEBUG
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := Config{
		FirmwarePath: "/opt/eagle",
		InitMode:     "second",
		ATEConfig:    6,
		BootTimeout:  500 * time.Millisecond,
		ResetTimeout: 3 * time.Second,
		NoTxAMPDU:    true,
		NoRxAMPDU:    true,
		Port:         "/dev/ttyUSB1",
		Baud:         115200,
		LogLevel:     "debug",
	}
	if *cfg != want {
		t.Errorf("Parse() = %+v, want %+v", *cfg, want)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want DEBUG", cfg.Level())
	}
}

func TestParse_UnknownKey(t *testing.T) {
	_, err := Parse([]byte("eagle_path: /lib/firmware\n"))
	if err == nil {
		t.Fatal("Parse() error = nil, want unknown key error")
	}
	if !strings.Contains(err.Error(), "eagle_path") {
		t.Errorf("Parse() error = %v, want it to name the key", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"zero", Config{}, ""},
		{"bad init mode", Config{InitMode: "third"}, "init_mode"},
		{"negative ate", Config{ATEConfig: -1}, "ate_config"},
		{"negative boot timeout", Config{BootTimeout: -time.Second}, "boot_timeout"},
		{"negative reset timeout", Config{ResetTimeout: -time.Second}, "reset_timeout"},
		{"negative baud", Config{Baud: -1}, "baud"},
		{"bad log level", Config{LogLevel: "trace"}, "log_level"},
		{"skip download in test mode", Config{SkipDownload: true, ATEConfig: 1}, "skip_download"},
		{"diagnostic ate", Config{ATEConfig: 3}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.cfg
			err := Validate(&tt.cfg)
			if tt.cfg != before {
				t.Errorf("Validate() mutated config: %+v", tt.cfg)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eagleboot.yaml")
	if err := os.WriteFile(path, []byte("init_mode: second\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.InitMode != "second" {
		t.Errorf("InitMode = %q, want second", cfg.InitMode)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil")
	}
}
