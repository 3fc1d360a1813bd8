package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Runner.ToolURL != "https://search.google.com/test/rich-results" {
		t.Errorf("ToolURL = %q", cfg.Runner.ToolURL)
	}
	if cfg.Runner.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.Runner.PollInterval)
	}
	if cfg.Runner.MaxRecoveryAttempts != 5 {
		t.Errorf("MaxRecoveryAttempts = %d, want 5", cfg.Runner.MaxRecoveryAttempts)
	}
	if cfg.Runner.NavRetries != 3 {
		t.Errorf("NavRetries = %d, want 3", cfg.Runner.NavRetries)
	}
	if cfg.Capture.Format != "png" {
		t.Errorf("Capture.Format = %q, want png", cfg.Capture.Format)
	}
	if !cfg.Preflight.Enabled {
		t.Errorf("Preflight.Enabled = false, want true")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RICHTEST_POLL_INTERVAL", "250ms")
	t.Setenv("RICHTEST_MAX_RECOVERY_ATTEMPTS", "2")
	t.Setenv("RICHTEST_ERROR_PATTERN", "(?i)request failed")
	t.Setenv("RICHTEST_API_KEYS", "key-a, key-b,")

	cfg := Load()

	if cfg.Runner.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.Runner.PollInterval)
	}
	if cfg.Runner.MaxRecoveryAttempts != 2 {
		t.Errorf("MaxRecoveryAttempts = %d, want 2", cfg.Runner.MaxRecoveryAttempts)
	}
	if cfg.Runner.ErrorPattern != "(?i)request failed" {
		t.Errorf("ErrorPattern = %q", cfg.Runner.ErrorPattern)
	}
	if len(cfg.Auth.APIKeys) != 2 || cfg.Auth.APIKeys[0] != "key-a" || cfg.Auth.APIKeys[1] != "key-b" {
		t.Errorf("APIKeys = %v, want [key-a key-b]", cfg.Auth.APIKeys)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "bad input selector",
			mutate:  func(c *Config) { c.Runner.InputSelector = "input[" },
			wantErr: true,
		},
		{
			name:    "bad spinner selector",
			mutate:  func(c *Config) { c.Runner.SpinnerSelector = ":::" },
			wantErr: true,
		},
		{
			name:    "bad error pattern",
			mutate:  func(c *Config) { c.Runner.ErrorPattern = "(" },
			wantErr: true,
		},
		{
			name:    "bad testing pattern",
			mutate:  func(c *Config) { c.Runner.TestingPattern = "[z-a]" },
			wantErr: true,
		},
		{
			name:    "view details pattern missing slashes",
			mutate:  func(c *Config) { c.Runner.ViewDetailsPattern = "view details" },
			wantErr: true,
		},
		{
			name:    "dismiss pattern empty",
			mutate:  func(c *Config) { c.Runner.DismissPattern = "" },
			wantErr: true,
		},
		{
			name:    "unknown capture format",
			mutate:  func(c *Config) { c.Capture.Format = "webp" },
			wantErr: true,
		},
		{
			name:    "non-positive capture height",
			mutate:  func(c *Config) { c.Capture.Height = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
