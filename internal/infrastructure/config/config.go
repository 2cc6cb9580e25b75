package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the shade worker.
// It is loaded from a YAML file and can be overridden by SHADES_* environment
// variables.
type Config struct {
	Site        SiteConfig        `yaml:"site"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Bridge      BridgeConfig      `yaml:"bridge"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Automations AutomationsConfig `yaml:"automations"`
	API         APIConfig         `yaml:"api"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// SiteConfig identifies the installation and where it is on the planet.
// Timezone and location drive cron evaluation and sunrise/sunset times.
type SiteConfig struct {
	ID       string         `yaml:"id"`
	Name     string         `yaml:"name"`
	Timezone string         `yaml:"timezone"`
	Location LocationConfig `yaml:"location"`
}

// LocationConfig holds geographic coordinates.
type LocationConfig struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	TLS       MQTTTLSConfig       `yaml:"tls"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains broker address settings.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTTLSConfig holds the TLS material for the broker connection.
// CertFile and KeyFile enable mutual TLS and must be set together.
type MQTTTLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// MQTTReconnectConfig contains reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// BridgeConfig describes the device bridge reached over MQTT.
type BridgeConfig struct {
	// Protocol is the bridge's topic segment, e.g. "somfy".
	Protocol string `yaml:"protocol"`

	// Domain is the device class enumerated before each unit of work.
	Domain string `yaml:"domain"`

	// RequestTimeout bounds a single request or command acknowledgement.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// CommandsPerSecond paces commands to the bridge; 0 disables pacing.
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	Burst             int     `yaml:"burst"`
}

// SchedulerConfig controls how automations fire and how their units run.
type SchedulerConfig struct {
	TaskQueue          string        `yaml:"task_queue"`
	UnitTimeout        time.Duration `yaml:"unit_timeout"`
	SunOffsetDirection string        `yaml:"sun_offset_direction"`
	Retry              RetryConfig   `yaml:"retry"`
}

// RetryConfig is the retry policy applied to each unit of work.
type RetryConfig struct {
	MaxAttempts        int           `yaml:"max_attempts"`
	InitialInterval    time.Duration `yaml:"initial_interval"`
	BackoffCoefficient float64       `yaml:"backoff_coefficient"`
	MaxInterval        time.Duration `yaml:"max_interval"`
}

// AutomationsConfig points at the automation manifest.
type AutomationsConfig struct {
	Path string `yaml:"path"`
}

// APIConfig contains the operations HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr
}

// Load reads configuration from a YAML file, applies defaults and
// environment overrides, then validates the result.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, parsed or validated
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overwriting variables that are already set.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-shades",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Bridge: BridgeConfig{
			Domain:         "cover",
			RequestTimeout: 5 * time.Second,
			Burst:          1,
		},
		Scheduler: SchedulerConfig{
			TaskQueue:          "shade-controls",
			UnitTimeout:        15 * time.Second,
			SunOffsetDirection: "after",
			Retry: RetryConfig{
				MaxAttempts:        3,
				InitialInterval:    time.Second,
				BackoffCoefficient: 2,
				MaxInterval:        5 * time.Second,
			},
		},
		Automations: AutomationsConfig{
			Path: "./configs/automations.yaml",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies SHADES_* environment variables on top of the
// file values. Secrets belong here rather than in the file.
func applyEnvOverrides(cfg *Config) error {
	// MQTT
	if v := os.Getenv("SHADES_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SHADES_MQTT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SHADES_MQTT_PORT: %w", err)
		}
		cfg.MQTT.Broker.Port = port
	}
	if v := os.Getenv("SHADES_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SHADES_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Bridge
	if v := os.Getenv("SHADES_BRIDGE_PROTOCOL"); v != "" {
		cfg.Bridge.Protocol = v
	}

	// Automations
	if v := os.Getenv("SHADES_AUTOMATIONS_PATH"); v != "" {
		cfg.Automations.Path = v
	}

	// Site
	if v := os.Getenv("SHADES_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}

	// API
	if v := os.Getenv("SHADES_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Logging
	if v := os.Getenv("SHADES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a known time zone", c.Site.Timezone))
	}
	if lat := c.Site.Location.Latitude; lat < -90 || lat > 90 {
		errs = append(errs, "site.location.latitude must be between -90 and 90")
	}
	if lon := c.Site.Location.Longitude; lon < -180 || lon > 180 {
		errs = append(errs, "site.location.longitude must be between -180 and 180")
	}

	// MQTT
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if (c.MQTT.TLS.CertFile == "") != (c.MQTT.TLS.KeyFile == "") {
		errs = append(errs, "mqtt.tls.cert_file and mqtt.tls.key_file must be set together")
	}

	// Bridge
	if c.Bridge.Protocol == "" {
		errs = append(errs, "bridge.protocol is required")
	}
	if c.Bridge.Domain == "" {
		errs = append(errs, "bridge.domain is required")
	}
	if c.Bridge.CommandsPerSecond < 0 {
		errs = append(errs, "bridge.commands_per_second cannot be negative")
	}
	if c.Bridge.CommandsPerSecond > 0 && c.Bridge.Burst < 1 {
		errs = append(errs, "bridge.burst must be at least 1 when pacing is enabled")
	}

	// Scheduler
	if c.Scheduler.UnitTimeout <= 0 {
		errs = append(errs, "scheduler.unit_timeout must be positive")
	}
	switch strings.ToLower(c.Scheduler.SunOffsetDirection) {
	case "", "after", "before":
	default:
		errs = append(errs, "scheduler.sun_offset_direction must be after or before")
	}
	if c.Scheduler.Retry.MaxAttempts < 1 {
		errs = append(errs, "scheduler.retry.max_attempts must be at least 1")
	}
	if c.Scheduler.Retry.BackoffCoefficient < 1 {
		errs = append(errs, "scheduler.retry.backoff_coefficient must be at least 1")
	}

	// Automations
	if c.Automations.Path == "" {
		errs = append(errs, "automations.path is required")
	}

	// API
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the site's time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading site timezone: %w", err)
	}
	return loc, nil
}

// ReadTimeout returns the API read timeout as a Duration.
func (a APIConfig) ReadTimeout() time.Duration {
	return time.Duration(a.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (a APIConfig) WriteTimeout() time.Duration {
	return time.Duration(a.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (a APIConfig) IdleTimeout() time.Duration {
	return time.Duration(a.Timeouts.Idle) * time.Second
}
