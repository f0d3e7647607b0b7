package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig.Validate())
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{
			name:    "zero interval",
			modify:  func(c *Config) { c.Poller.Interval = 0 },
			wantErr: ErrNonPositiveInterval,
		},
		{
			name:    "negative interval",
			modify:  func(c *Config) { c.Poller.Interval = -time.Second },
			wantErr: ErrNonPositiveInterval,
		},
		{
			name:    "empty bind address",
			modify:  func(c *Config) { c.HTTP.BindAddress = "" },
			wantErr: ErrEmptyBindAddress,
		},
		{
			name:    "negative retention",
			modify:  func(c *Config) { c.History.Retention = -time.Hour },
			wantErr: ErrNegativeRetention,
		},
		{
			name:    "empty devices dir",
			modify:  func(c *Config) { c.OneWire.DevicesDir = "" },
			wantErr: ErrEmptyDevicesDir,
		},
		{
			name:   "zero retention keeps forever",
			modify: func(c *Config) { c.History.Retention = 0 },
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig
			tc.modify(&cfg)
			err := cfg.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestConfig_YAML(t *testing.T) {
	data, err := DefaultConfig.YAML()
	require.NoError(t, err)

	var doc map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "/sys/bus/w1/devices", doc["oneWire"]["devicesDir"])
	assert.Equal(t, "0.0.0.0:9091", doc["http"]["bindAddress"])
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "temperatures-config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolateConfigEnv keeps config files and variables of the machine running
// the tests out of LoadConfig. Empty variables are ignored by the builder.
func isolateConfigEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TEMPERATURES_CONFIG", "")
	t.Setenv("TEMPERATURES_HISTORY_RETENTION", "")
	t.Setenv("TEMPERATURES_HTTP_BINDADDRESS", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.OneWire, cfg.OneWire)
	assert.Equal(t, DefaultConfig.Poller, cfg.Poller)
	assert.Equal(t, DefaultConfig.HTTP.BindAddress, cfg.HTTP.BindAddress)
	assert.Equal(t, DefaultConfig.History, cfg.History)
}

func TestLoadConfig_EnvFileThenEnvVars(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPERATURES_CONFIG", writeConfigFile(t, `
oneWire:
  devicesDir: /tmp/w1
  skipCRCCheck: true
poller:
  interval: 30s
history:
  path: /var/lib/temperatures/history.db
  retention: 12h
`))
	t.Setenv("TEMPERATURES_HISTORY_RETENTION", "48h")
	t.Setenv("TEMPERATURES_HTTP_BINDADDRESS", "127.0.0.1:9999")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w1", cfg.OneWire.DevicesDir)
	assert.True(t, cfg.OneWire.SkipCRCCheck)
	assert.Equal(t, 30*time.Second, cfg.Poller.Interval)
	assert.Equal(t, "/var/lib/temperatures/history.db", cfg.History.Path)
	assert.Equal(t, 48*time.Hour, cfg.History.Retention)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTP.BindAddress)
}

func TestLoadConfig_FileArgOverridesEnvFile(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TEMPERATURES_CONFIG", writeConfigFile(t, `
poller:
  interval: 30s
http:
  bindAddress: 127.0.0.1:8080
`))
	cfgFile := writeConfigFile(t, `
poller:
  interval: 5s
`)

	cfg, err := LoadConfig(cfgFile)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Poller.Interval)
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTP.BindAddress)
}

func TestLoadConfig_MissingFileIsIgnored(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig.Poller.Interval, cfg.Poller.Interval)
}

func TestLoadConfig_Invalid(t *testing.T) {
	isolateConfigEnv(t)
	cfgFile := writeConfigFile(t, `
poller:
  interval: 0s
`)

	_, err := LoadConfig(cfgFile)
	assert.ErrorIs(t, err, ErrNonPositiveInterval)
}
