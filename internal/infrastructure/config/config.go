package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the hub driver.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Driver    DriverConfig    `yaml:"driver"`
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Requests  RequestsConfig  `yaml:"requests"`
	Setup     SetupConfig     `yaml:"setup"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Entities  []EntityConfig  `yaml:"entities"`
}

// DriverConfig points at the driver metadata document.
type DriverConfig struct {
	MetadataFile string `yaml:"metadata_file"`
}

// ServerConfig contains the listener settings for the hub endpoint.
type ServerConfig struct {
	Interface string              `yaml:"interface"`
	Port      int                 `yaml:"port"`
	Timeouts  ServerTimeoutConfig `yaml:"timeouts"`
}

// ServerTimeoutConfig contains HTTP timeout settings in seconds.
type ServerTimeoutConfig struct {
	ReadHeader int `yaml:"read_header"`
	Idle       int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket transport settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
	SendBuffer     int    `yaml:"send_buffer"`
}

// RequestsConfig contains settings for driver-initiated requests to the hub.
type RequestsConfig struct {
	TimeoutMS int `yaml:"timeout_ms"`
}

// SetupConfig contains setup wizard settings.
type SetupConfig struct {
	PacingDelayMS int                `yaml:"pacing_delay_ms"`
	Fields        []SetupFieldConfig `yaml:"fields"`
}

// SetupFieldConfig is one text field of the setup form. Required fields
// must have a value before the setup completes.
type SetupFieldConfig struct {
	ID       string            `yaml:"id"`
	Label    map[string]string `yaml:"label"`
	Default  string            `yaml:"default"`
	Required bool              `yaml:"required"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DiscoveryConfig contains mDNS advertisement settings.
type DiscoveryConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Service    string   `yaml:"service"`
	Domain     string   `yaml:"domain"`
	InstanceID string   `yaml:"instance_id"`
	Interfaces []string `yaml:"interfaces"`
}

// EntityConfig describes one entity of the driver catalogue.
type EntityConfig struct {
	ID          string            `yaml:"id"`
	Type        string            `yaml:"type"`
	Name        map[string]string `yaml:"name"`
	Features    []string          `yaml:"features"`
	Area        string            `yaml:"area"`
	DeviceClass string            `yaml:"device_class"`
	Options     map[string]any    `yaml:"options"`
	Attributes  map[string]any    `yaml:"attributes"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Integration variables use the UC_INTEGRATION_* names hubs already set;
// everything else follows HUBDRIVER_SECTION_KEY.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Driver: DriverConfig{
			MetadataFile: "./driver.json",
		},
		Server: ServerConfig{
			Interface: "0.0.0.0",
			Port:      9090,
			Timeouts: ServerTimeoutConfig{
				ReadHeader: 10,
				Idle:       60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 1 << 20,
			PingInterval:   30,
			PongTimeout:    10,
			SendBuffer:     256,
		},
		Requests: RequestsConfig{
			TimeoutMS: 5000,
		},
		Setup: SetupConfig{
			PacingDelayMS: 500,
		},
		Database: DatabaseConfig{
			Enabled:     true,
			Path:        "./data/hubdriver.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "hubdriver",
			},
			QoS:         1,
			TopicPrefix: "hubdriver",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "hubdriver",
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			Service: "_uc-integration._tcp",
			Domain:  "local.",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	// Integration
	if v := os.Getenv("UC_INTEGRATION_INTERFACE"); v != "" {
		cfg.Server.Interface = v
	}
	if v := os.Getenv("UC_INTEGRATION_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing UC_INTEGRATION_HTTP_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("UC_DISABLE_MDNS_PUBLISH"); v != "" {
		disabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing UC_DISABLE_MDNS_PUBLISH: %w", err)
		}
		if disabled {
			cfg.Discovery.Enabled = false
		}
	}

	// Logging
	if v := os.Getenv("HUBDRIVER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Database
	if v := os.Getenv("HUBDRIVER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HUBDRIVER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HUBDRIVER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HUBDRIVER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HUBDRIVER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if !strings.HasPrefix(c.WebSocket.Path, "/") {
		errs = append(errs, "websocket.path must start with /")
	}
	if c.Requests.TimeoutMS <= 0 {
		errs = append(errs, "requests.timeout_ms must be positive")
	}
	if c.Setup.PacingDelayMS < 0 {
		errs = append(errs, "setup.pacing_delay_ms must not be negative")
	}
	for i, f := range c.Setup.Fields {
		if f.ID == "" {
			errs = append(errs, fmt.Sprintf("setup.fields[%d].id is required", i))
		}
	}
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	seen := make(map[string]struct{}, len(c.Entities))
	for i, e := range c.Entities {
		if e.ID == "" {
			errs = append(errs, fmt.Sprintf("entities[%d].id is required", i))
			continue
		}
		if _, dup := seen[e.ID]; dup {
			errs = append(errs, fmt.Sprintf("entities[%d]: duplicate id %q", i, e.ID))
		}
		seen[e.ID] = struct{}{}
		if e.Type == "" {
			errs = append(errs, fmt.Sprintf("entities[%d].type is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ListenAddr returns the host:port the hub endpoint listens on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Interface, c.Server.Port)
}

// GetRequestTimeout returns the driver-initiated request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Requests.TimeoutMS) * time.Millisecond
}

// GetPacingDelay returns the setup pacing delay as a Duration.
func (c *Config) GetPacingDelay() time.Duration {
	return time.Duration(c.Setup.PacingDelayMS) * time.Millisecond
}

// GetPingInterval returns the WebSocket ping interval as a Duration.
func (c *Config) GetPingInterval() time.Duration {
	return time.Duration(c.WebSocket.PingInterval) * time.Second
}

// GetPongTimeout returns the WebSocket pong timeout as a Duration.
func (c *Config) GetPongTimeout() time.Duration {
	return time.Duration(c.WebSocket.PongTimeout) * time.Second
}
