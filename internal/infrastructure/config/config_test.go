package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
server:
  interface: "127.0.0.1"
  port: 9988
requests:
  timeout_ms: 2500
setup:
  fields:
    - id: "address"
      label:
        en: "Address"
      required: true
database:
  path: "/tmp/test.db"
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
entities:
  - id: "light.kitchen"
    type: "light"
    name:
      en: "Kitchen"
    features: ["on_off", "dim"]
    attributes:
      state: "OFF"
`
	cfg, err := Load(writeFile(t, "config.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ListenAddr() != "127.0.0.1:9988" {
		t.Errorf("ListenAddr() = %q, want %q", cfg.ListenAddr(), "127.0.0.1:9988")
	}
	if cfg.GetRequestTimeout() != 2500*time.Millisecond {
		t.Errorf("GetRequestTimeout() = %v, want 2.5s", cfg.GetRequestTimeout())
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if len(cfg.Entities) != 1 {
		t.Fatalf("len(Entities) = %d, want 1", len(cfg.Entities))
	}
	if cfg.Entities[0].Name["en"] != "Kitchen" {
		t.Errorf("Entities[0].Name[en] = %q, want %q", cfg.Entities[0].Name["en"], "Kitchen")
	}
	if cfg.Entities[0].Attributes["state"] != "OFF" {
		t.Errorf("Entities[0].Attributes[state] = %v, want OFF", cfg.Entities[0].Attributes["state"])
	}
	if len(cfg.Setup.Fields) != 1 || !cfg.Setup.Fields[0].Required {
		t.Errorf("Setup.Fields = %+v, want one required field", cfg.Setup.Fields)
	}
	// Defaults survive a partial file.
	if cfg.GetPacingDelay() != 500*time.Millisecond {
		t.Errorf("GetPacingDelay() = %v, want 500ms", cfg.GetPacingDelay())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeFile(t, "config.yaml", "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidPortOverride(t *testing.T) {
	t.Setenv("UC_INTEGRATION_HTTP_PORT", "not-a-port")
	_, err := Load(writeFile(t, "config.yaml", "server:\n  port: 9090\n"))
	if err == nil {
		t.Error("Load() expected error for invalid UC_INTEGRATION_HTTP_PORT, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}, wantErr: false},
		{name: "port low", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "port high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "relative ws path", mutate: func(c *Config) { c.WebSocket.Path = "ws" }, wantErr: true},
		{name: "zero request timeout", mutate: func(c *Config) { c.Requests.TimeoutMS = 0 }, wantErr: true},
		{name: "negative pacing", mutate: func(c *Config) { c.Setup.PacingDelayMS = -1 }, wantErr: true},
		{name: "zero pacing", mutate: func(c *Config) { c.Setup.PacingDelayMS = 0 }, wantErr: false},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "database disabled without path", mutate: func(c *Config) {
			c.Database.Enabled = false
			c.Database.Path = ""
		}, wantErr: false},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: true},
		{name: "mqtt without prefix", mutate: func(c *Config) {
			c.MQTT.Enabled = true
			c.MQTT.TopicPrefix = ""
		}, wantErr: true},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: true},
		{name: "entity without id", mutate: func(c *Config) {
			c.Entities = []EntityConfig{{Type: "light"}}
		}, wantErr: true},
		{name: "entity without type", mutate: func(c *Config) {
			c.Entities = []EntityConfig{{ID: "a"}}
		}, wantErr: true},
		{name: "setup field without id", mutate: func(c *Config) {
			c.Setup.Fields = []SetupFieldConfig{{Label: map[string]string{"en": "Address"}}}
		}, wantErr: true},
		{name: "duplicate entity", mutate: func(c *Config) {
			c.Entities = []EntityConfig{{ID: "a", Type: "light"}, {ID: "a", Type: "switch"}}
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("UC_INTEGRATION_INTERFACE", "192.168.1.10")
	t.Setenv("UC_INTEGRATION_HTTP_PORT", "9111")
	t.Setenv("UC_DISABLE_MDNS_PUBLISH", "true")
	t.Setenv("HUBDRIVER_LOG_LEVEL", "debug")
	t.Setenv("HUBDRIVER_DATABASE_PATH", "/custom/path.db")
	t.Setenv("HUBDRIVER_MQTT_HOST", "mqtt.example.com")
	t.Setenv("HUBDRIVER_MQTT_USERNAME", "testuser")
	t.Setenv("HUBDRIVER_MQTT_PASSWORD", "testpass")
	t.Setenv("HUBDRIVER_INFLUXDB_TOKEN", "secret-token")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}

	if cfg.Server.Interface != "192.168.1.10" {
		t.Errorf("Server.Interface = %q, want %q", cfg.Server.Interface, "192.168.1.10")
	}
	if cfg.Server.Port != 9111 {
		t.Errorf("Server.Port = %d, want 9111", cfg.Server.Port)
	}
	if cfg.Discovery.Enabled {
		t.Error("Discovery.Enabled = true, want false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestApplyEnvOverrides_MDNSFalseKeepsDiscovery(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("UC_DISABLE_MDNS_PUBLISH", "false")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides() error = %v", err)
	}
	if !cfg.Discovery.Enabled {
		t.Error("Discovery.Enabled = false, want true")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 9090 {
		t.Errorf("defaultConfig Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Requests.TimeoutMS != 5000 {
		t.Errorf("defaultConfig Requests.TimeoutMS = %d, want 5000", cfg.Requests.TimeoutMS)
	}
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("defaultConfig WebSocket.Path = %q, want /ws", cfg.WebSocket.Path)
	}
	if cfg.MQTT.Enabled {
		t.Error("defaultConfig MQTT.Enabled = true, want false")
	}
}
