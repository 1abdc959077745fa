// internal/config/config.go
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Bus      BusConfig      `yaml:"bus"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Groups   []GroupConfig  `yaml:"groups" validate:"required,min=1,dive"`
}

// ---- GATEWAY ----

type GatewayConfig struct {
	RetryDelayMs  int    `yaml:"retry_delay_ms" validate:"gte=0"`
	MetricsListen string `yaml:"metrics_listen"`
}

// ---- BUS ----

type BusConfig struct {
	Mode   string        `yaml:"mode" validate:"required,oneof=tcp serial"`
	TCP    *TCPConfig    `yaml:"tcp"`
	Serial *SerialConfig `yaml:"serial"`
}

type TCPConfig struct {
	Address   string `yaml:"address" validate:"required"`
	SlaveID   uint8  `yaml:"slave_id"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gte=0"`
}

type SerialConfig struct {
	Device    string `yaml:"device" validate:"required"`
	BaudRate  int    `yaml:"baud_rate" validate:"gte=0"`
	DataBits  int    `yaml:"data_bits" validate:"gte=0"`
	Parity    string `yaml:"parity" validate:"omitempty,oneof=N E O"`
	StopBits  int    `yaml:"stop_bits" validate:"gte=0"`
	SlaveID   uint8  `yaml:"slave_id"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gte=0"`
}

// ---- SINK ----

type InfluxDBConfig struct {
	URL       string `yaml:"url" validate:"required,url"`
	Database  string `yaml:"database" validate:"required"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	TimeoutMs int    `yaml:"timeout_ms" validate:"gte=0"`
}

// ---- GROUPS / DEVICES ----

type GroupConfig struct {
	Name      string           `yaml:"name" validate:"required"`
	Registers []RegisterConfig `yaml:"registers" validate:"required,min=1,dive"`
	Devices   []DeviceConfig   `yaml:"devices" validate:"required,min=1,dive"`
}

type RegisterConfig struct {
	Address uint16 `yaml:"address"`
	Name    string `yaml:"name" validate:"required"`
}

type DeviceConfig struct {
	ID             string      `yaml:"id" validate:"required"`
	ScanIntervalMs int         `yaml:"scan_interval_ms" validate:"required,gt=0"`
	Tags           []TagConfig `yaml:"tags" validate:"dive"`
}

type TagConfig struct {
	Key   string `yaml:"key" validate:"required"`
	Value string `yaml:"value" validate:"required"`
}

// Load reads and decodes the YAML config file. Validation is separate;
// call Validate, then Normalize, before using the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
