package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/iver-wharf/wharf-core/v2/pkg/config"
	"gopkg.in/yaml.v3"
)

// Config holds all configurable settings for temperatures.
//
// The config is read in the following order:
//
// 1. File: ~/.config/iver-wharf/temperatures/temperatures-config.yml
//
// 2. File: ./temperatures-config.yml
//
// 3. File from environment variable: TEMPERATURES_CONFIG
//
// 4. Environment variables, prefixed with TEMPERATURES
//
// Each inner struct is represented as a deeper field in the different
// configurations. For YAML they represent deeper nested maps. For environment
// variables they are joined together by underscores.
//
// All environment variables must be uppercased, while YAML files are
// case-insensitive. Keeping camelCasing in YAML config files is recommended
// for consistency.
type Config struct {
	OneWire OneWireConfig `yaml:"oneWire"`
	Poller  PollerConfig  `yaml:"poller"`
	HTTP    HTTPConfig    `yaml:"http"`
	History HistoryConfig `yaml:"history"`
}

// OneWireConfig holds settings for reading 1-Wire sensors.
type OneWireConfig struct {
	// DevicesDir is the sysfs directory that the Linux w1 kernel driver
	// exposes the connected devices in.
	//
	// Added in v0.1.0.
	DevicesDir string `yaml:"devicesDir"`

	// SkipCRCCheck disables rejecting readings whose checksum the kernel
	// driver reported as invalid. Some clone sensors report "NO" even for
	// valid readings.
	//
	// Added in v0.2.0.
	SkipCRCCheck bool `yaml:"skipCRCCheck"`
}

// PollerConfig holds settings for the sensor poller.
type PollerConfig struct {
	// Interval is the duration between each read of all sensors.
	//
	// Added in v0.1.0.
	Interval time.Duration `yaml:"interval"`
}

// HTTPConfig holds settings for the HTTP server.
type HTTPConfig struct {
	CORS CORSConfig `yaml:"cors"`

	// BindAddress is the IP-address and port, separated by a colon, to bind
	// the HTTP server to. An IP-address of 0.0.0.0 will bind to all
	// IP-addresses.
	//
	// Added in v0.1.0.
	BindAddress string `yaml:"bindAddress"`
}

// CORSConfig holds settings for the HTTP server's CORS settings.
type CORSConfig struct {
	// AllowAllOrigins enables CORS and allows all hostnames and URLs in the
	// HTTP request origins when set to true. Practically speaking, this
	// results in the HTTP header "Access-Control-Allow-Origin" set to "*".
	//
	// Added in v0.2.0.
	AllowAllOrigins bool `yaml:"allowAllOrigins"`

	// AllowOrigins enables CORS and allows the list of origins in the
	// HTTP request origins when set. Practically speaking, this
	// results in the HTTP header "Access-Control-Allow-Origin".
	//
	// Added in v0.2.0.
	AllowOrigins []string `yaml:"allowOrigins"`
}

// HistoryConfig holds settings for storing readings in a local database.
type HistoryConfig struct {
	// Path is the file path of the SQLite database. History is disabled when
	// left empty.
	//
	// Added in v0.2.0.
	Path string `yaml:"path"`

	// Retention is how long readings are kept before they are pruned.
	// A value of zero keeps readings forever.
	//
	// Added in v0.2.0.
	Retention time.Duration `yaml:"retention"`
}

// DefaultConfig is the hard-coded default values for temperatures' configs.
var DefaultConfig = Config{
	OneWire: OneWireConfig{
		DevicesDir: "/sys/bus/w1/devices",
	},
	Poller: PollerConfig{
		Interval: 60 * time.Second,
	},
	HTTP: HTTPConfig{
		CORS: CORSConfig{
			AllowAllOrigins: false,
			AllowOrigins:    []string{},
		},
		BindAddress: "0.0.0.0:9091",
	},
	History: HistoryConfig{
		Path:      "",
		Retention: 30 * 24 * time.Hour,
	},
}

// Errors returned when validating the config.
var (
	ErrNonPositiveInterval = errors.New("poller.interval must be positive")
	ErrEmptyBindAddress    = errors.New("http.bindAddress must not be empty")
	ErrNegativeRetention   = errors.New("history.retention must not be negative")
	ErrEmptyDevicesDir     = errors.New("oneWire.devicesDir must not be empty")
)

// LoadConfig looks for, parses and validates the config and returns it as a
// Config object. The cfgFile, if not empty, is read after the file named by
// TEMPERATURES_CONFIG, and environment variables are applied last.
func LoadConfig(cfgFile string) (Config, error) {
	cfgBuilder := config.NewBuilder(DefaultConfig)

	cfgBuilder.AddConfigYAMLFile("~/.config/iver-wharf/temperatures/temperatures-config.yml")
	cfgBuilder.AddConfigYAMLFile("temperatures-config.yml")
	if envFile, ok := os.LookupEnv("TEMPERATURES_CONFIG"); ok {
		cfgBuilder.AddConfigYAMLFile(envFile)
	}
	cfgBuilder.AddConfigYAMLFile(cfgFile)
	cfgBuilder.AddEnvironmentVariables("TEMPERATURES")

	var cfg Config
	if err := cfgBuilder.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate returns an error if any of the settings are out of range.
func (c Config) Validate() error {
	if c.OneWire.DevicesDir == "" {
		return ErrEmptyDevicesDir
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("%w: %s", ErrNonPositiveInterval, c.Poller.Interval)
	}
	if c.HTTP.BindAddress == "" {
		return ErrEmptyBindAddress
	}
	if c.History.Retention < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeRetention, c.History.Retention)
	}
	return nil
}

// YAML returns the config formatted as a YAML document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(&c)
}
