package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrMissingDriverID is returned when the metadata document has no driver_id.
var ErrMissingDriverID = errors.New("config: driver metadata has no driver_id")

// Metadata is the driver metadata document (driver.json).
//
// The typed fields are what the bootstrap needs; Document keeps the whole
// file so get_driver_metadata can return it unchanged.
type Metadata struct {
	DriverID string            `yaml:"driver_id"`
	Name     map[string]string `yaml:"name"`
	Version  string            `yaml:"version"`
	Port     int               `yaml:"port"`

	Document map[string]any `yaml:"-"`
}

// LoadMetadata reads the driver metadata document. JSON is accepted as-is
// since every JSON document is valid YAML.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading driver metadata: %w", err)
	}
	return ParseMetadata(data)
}

// ParseMetadata decodes a driver metadata document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parsing driver metadata: %w", err)
	}
	if err := yaml.Unmarshal(data, &md.Document); err != nil {
		return nil, fmt.Errorf("parsing driver metadata: %w", err)
	}
	if md.DriverID == "" {
		return nil, ErrMissingDriverID
	}
	if md.Document == nil {
		md.Document = make(map[string]any)
	}
	return &md, nil
}

// ApplyTo uses the metadata port unless the port was overridden through
// UC_INTEGRATION_HTTP_PORT.
func (m *Metadata) ApplyTo(cfg *Config) {
	if m.Port > 0 && os.Getenv("UC_INTEGRATION_HTTP_PORT") == "" {
		cfg.Server.Port = m.Port
	}
	if cfg.Discovery.InstanceID == "" {
		cfg.Discovery.InstanceID = m.DriverID
	}
}

// DisplayName returns the English name, or any name if no English one is set.
func (m *Metadata) DisplayName() string {
	if n, ok := m.Name["en"]; ok {
		return n
	}
	for _, n := range m.Name {
		return n
	}
	return m.DriverID
}
