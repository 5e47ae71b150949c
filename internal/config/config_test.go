package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vmorsell/app-mixer/internal/ratelimit"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mixer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := DefaultConfig()
	if *cfg != *want {
		t.Errorf("expected defaults %+v, got %+v", want, cfg)
	}
}

func TestDefaultConfig_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MutationRateLimit != ratelimit.DefaultMutationRateLimit {
		t.Errorf("expected rate %v, got %v", ratelimit.DefaultMutationRateLimit, cfg.MutationRateLimit)
	}
	if cfg.MutationBurst != ratelimit.DefaultMutationBurst {
		t.Errorf("expected burst %d, got %d", ratelimit.DefaultMutationBurst, cfg.MutationBurst)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
listen_addr: 0.0.0.0:9000
poll_interval: 250ms
operation_timeout: 2s
pulse_server: unix:/run/user/1000/pulse/native
max_clients: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Errorf("listen_addr = %q", cfg.ListenAddr)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("poll_interval = %v", cfg.PollInterval)
	}
	if cfg.OperationTimeout != 2*time.Second {
		t.Errorf("operation_timeout = %v", cfg.OperationTimeout)
	}
	if cfg.PulseServer != "unix:/run/user/1000/pulse/native" {
		t.Errorf("pulse_server = %q", cfg.PulseServer)
	}
	if cfg.MaxClients != 3 {
		t.Errorf("max_clients = %d", cfg.MaxClients)
	}
	if cfg.ClientName != "app-mixer" {
		t.Errorf("expected default client_name, got %q", cfg.ClientName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "log_level: info\n")
	t.Setenv("MIXER_LOG_LEVEL", "debug")
	t.Setenv("MIXER_OPERATION_TIMEOUT", "750ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected env to override log_level, got %q", cfg.LogLevel)
	}
	if cfg.OperationTimeout != 750*time.Millisecond {
		t.Errorf("expected env to override operation_timeout, got %v", cfg.OperationTimeout)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero timeout", "operation_timeout: 0s\n"},
		{"negative poll", "poll_interval: -1s\n"},
		{"no clients", "max_clients: 0\n"},
		{"zero burst", "mutation_burst: 0\n"},
		{"malformed yaml", "listen_addr: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
