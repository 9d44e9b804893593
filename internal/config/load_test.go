package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gsd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.Server.Addr != ":5000" {
		t.Errorf("Server.Addr = %q, want :5000", config.Server.Addr)
	}
	if config.Server.WriteTimeout != 0 {
		t.Errorf("Server.WriteTimeout = %v, want 0", config.Server.WriteTimeout)
	}
	if config.Stream.TickInterval != time.Second {
		t.Errorf("Stream.TickInterval = %v, want 1s", config.Stream.TickInterval)
	}
	if config.Source.Kind != SourceSynthetic {
		t.Errorf("Source.Kind = %q, want %q", config.Source.Kind, SourceSynthetic)
	}
	if config.MQTT.Enabled() {
		t.Error("MQTT should be disabled by default")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("GSD_ADDR", "127.0.0.1:8080")
	t.Setenv("GSD_TICK_INTERVAL", "250ms")
	t.Setenv("GSD_SOURCE", "serial")
	t.Setenv("GSD_SOURCE_SEED", "42")
	t.Setenv("GSD_AUDIT_DIR", "")
	t.Setenv("GSD_MQTT_BROKER", "tcp://localhost:1883")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() with env overrides failed: %v", err)
	}

	if config.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server.Addr = %q, want 127.0.0.1:8080", config.Server.Addr)
	}
	if config.Stream.TickInterval != 250*time.Millisecond {
		t.Errorf("Stream.TickInterval = %v, want 250ms", config.Stream.TickInterval)
	}
	if config.Source.Kind != SourceSerial {
		t.Errorf("Source.Kind = %q, want serial", config.Source.Kind)
	}
	if config.Source.Seed != 42 {
		t.Errorf("Source.Seed = %d, want 42", config.Source.Seed)
	}
	if config.Audit.Dir != "" {
		t.Errorf("Audit.Dir = %q, want empty", config.Audit.Dir)
	}
	if !config.MQTT.Enabled() {
		t.Error("MQTT should be enabled when GSD_MQTT_BROKER is set")
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"GSD_TICK_INTERVAL", "soon"},
		{"GSD_READ_TIMEOUT", "10"},
		{"GSD_SOURCE_SEED", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() should fail for %s=%q", tt.key, tt.value)
			} else if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Error should name %s, got %v", tt.key, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":6000"
  idleTimeout: 1m
stream:
  tickInterval: 500ms
source:
  kind: synthetic
  seed: 7
mqtt:
  broker: tcp://broker:1883
  topicPrefix: station/1
`)
	t.Setenv("GSD_CONFIG", path)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() from file failed: %v", err)
	}

	if config.Server.Addr != ":6000" {
		t.Errorf("Server.Addr = %q, want :6000", config.Server.Addr)
	}
	if config.Server.IdleTimeout != time.Minute {
		t.Errorf("Server.IdleTimeout = %v, want 1m", config.Server.IdleTimeout)
	}
	// Keys absent from the file keep their defaults.
	if config.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 30s", config.Server.ReadTimeout)
	}
	if config.Stream.TickInterval != 500*time.Millisecond {
		t.Errorf("Stream.TickInterval = %v, want 500ms", config.Stream.TickInterval)
	}
	if config.Source.Seed != 7 {
		t.Errorf("Source.Seed = %d, want 7", config.Source.Seed)
	}
	if config.MQTT.TopicPrefix != "station/1" || config.MQTT.ClientID != "gsd" {
		t.Errorf("Unexpected MQTT config %+v", config.MQTT)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":6000\"\n")
	t.Setenv("GSD_CONFIG", path)
	t.Setenv("GSD_ADDR", ":7000")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if config.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q, want :7000", config.Server.Addr)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("GSD_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() should fail when GSD_CONFIG names a missing file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	t.Setenv("GSD_CONFIG", writeConfig(t, "server: [not, a, map"))

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}
