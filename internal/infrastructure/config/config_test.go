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
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
  timezone: "UTC"
  location:
    latitude: 47.6062
    longitude: -122.3321
mqtt:
  broker:
    host: "broker.local"
    port: 8883
  tls:
    enabled: true
    ca_file: /etc/shades/ca.pem
bridge:
  protocol: somfy
  request_timeout: 2s
  commands_per_second: 4
  burst: 2
scheduler:
  unit_timeout: 20s
  sun_offset_direction: before
  retry:
    max_attempts: 5
    initial_interval: 500ms
automations:
  path: /etc/shades/automations.yaml
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.Location.Latitude != 47.6062 {
		t.Errorf("Latitude = %v, want 47.6062", cfg.Site.Location.Latitude)
	}
	if !cfg.MQTT.TLS.Enabled || cfg.MQTT.TLS.CAFile != "/etc/shades/ca.pem" {
		t.Errorf("MQTT.TLS = %+v", cfg.MQTT.TLS)
	}
	if cfg.Bridge.RequestTimeout != 2*time.Second {
		t.Errorf("Bridge.RequestTimeout = %v, want 2s", cfg.Bridge.RequestTimeout)
	}
	if cfg.Scheduler.UnitTimeout != 20*time.Second {
		t.Errorf("Scheduler.UnitTimeout = %v, want 20s", cfg.Scheduler.UnitTimeout)
	}
	if cfg.Scheduler.Retry.MaxAttempts != 5 || cfg.Scheduler.Retry.InitialInterval != 500*time.Millisecond {
		t.Errorf("Scheduler.Retry = %+v", cfg.Scheduler.Retry)
	}

	// Untouched sections keep their defaults.
	if cfg.Bridge.Domain != "cover" {
		t.Errorf("Bridge.Domain = %q, want default %q", cfg.Bridge.Domain, "cover")
	}
	if cfg.Scheduler.TaskQueue != "shade-controls" {
		t.Errorf("Scheduler.TaskQueue = %q, want default %q", cfg.Scheduler.TaskQueue, "shade-controls")
	}
	if cfg.Scheduler.Retry.BackoffCoefficient != 2 {
		t.Errorf("Retry.BackoffCoefficient = %v, want default 2", cfg.Scheduler.Retry.BackoffCoefficient)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "bridge:\n  protocol: somfy\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scheduler.UnitTimeout != 15*time.Second {
		t.Errorf("UnitTimeout = %v, want 15s", cfg.Scheduler.UnitTimeout)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if cfg.API.ReadTimeout() != 30*time.Second {
		t.Errorf("ReadTimeout() = %v, want 30s", cfg.API.ReadTimeout())
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("Location() = %v, %v, want UTC", loc, err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHADES_MQTT_HOST", "env-broker")
	t.Setenv("SHADES_MQTT_PORT", "1884")
	t.Setenv("SHADES_MQTT_PASSWORD", "secret")
	t.Setenv("SHADES_BRIDGE_PROTOCOL", "zigbee")
	t.Setenv("SHADES_AUTOMATIONS_PATH", "/tmp/a.yaml")
	t.Setenv("SHADES_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "bridge:\n  protocol: somfy\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" || cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("broker = %s:%d, want env-broker:1884", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port)
	}
	if cfg.MQTT.Auth.Password != "secret" {
		t.Error("SHADES_MQTT_PASSWORD not applied")
	}
	if cfg.Bridge.Protocol != "zigbee" {
		t.Errorf("Bridge.Protocol = %q, want zigbee", cfg.Bridge.Protocol)
	}
	if cfg.Automations.Path != "/tmp/a.yaml" {
		t.Errorf("Automations.Path = %q", cfg.Automations.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_BadEnvPort(t *testing.T) {
	t.Setenv("SHADES_MQTT_PORT", "not-a-port")
	if _, err := Load(writeConfig(t, "bridge:\n  protocol: somfy\n")); err == nil {
		t.Error("Load() should reject a non-numeric SHADES_MQTT_PORT")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing protocol", mutate: func(c *Config) { c.Bridge.Protocol = "" }, wantErr: "bridge.protocol"},
		{name: "bad timezone", mutate: func(c *Config) { c.Site.Timezone = "Mars/Olympus" }, wantErr: "site.timezone"},
		{name: "latitude", mutate: func(c *Config) { c.Site.Location.Latitude = 95 }, wantErr: "latitude"},
		{name: "qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "half a client cert", mutate: func(c *Config) { c.MQTT.TLS.CertFile = "c.pem" }, wantErr: "cert_file"},
		{name: "zero timeout", mutate: func(c *Config) { c.Scheduler.UnitTimeout = 0 }, wantErr: "unit_timeout"},
		{name: "direction", mutate: func(c *Config) { c.Scheduler.SunOffsetDirection = "sideways" }, wantErr: "sun_offset_direction"},
		{name: "attempts", mutate: func(c *Config) { c.Scheduler.Retry.MaxAttempts = 0 }, wantErr: "max_attempts"},
		{name: "burst", mutate: func(c *Config) { c.Bridge.CommandsPerSecond = 2; c.Bridge.Burst = 0 }, wantErr: "bridge.burst"},
		{name: "api port ignored when disabled", mutate: func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Bridge.Protocol = "somfy"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SHADES_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	t.Setenv("SHADES_TEST_DOTENV", "")
	os.Unsetenv("SHADES_TEST_DOTENV") //nolint:errcheck // restored by t.Setenv cleanup

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile() error = %v", err)
	}
	if got := os.Getenv("SHADES_TEST_DOTENV"); got != "from-file" {
		t.Errorf("SHADES_TEST_DOTENV = %q, want from-file", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("LoadEnvFile() on a missing file error = %v, want nil", err)
	}
}
