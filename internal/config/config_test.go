package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/halcyon/robomon/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setArgs(t *testing.T, args ...string) {
	t.Helper()

	orig := os.Args
	os.Args = append([]string{"robomon"}, args...)
	t.Cleanup(func() { os.Args = orig })
}

func TestLoad(t *testing.T) {
	setArgs(t)

	configContent := []byte(`
thermal_addr = ":9765"
torque_addr = ":9766"
http_addr = ":9000"
events_log = "/tmp/robomon-events.log"
settings_file = "/tmp/robomon-settings.json"
history_size = 50
publish_interval_ms = 250
cooldown_seconds = 2.5
archive = true
archive_db = "/tmp/robomon-archive.db"
log_level = "debug"
`)
	configPath := filepath.Join(t.TempDir(), "robomon.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("ROBOMON_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9765", cfg.ThermalAddr, "Expected ThermalAddr :9765")
	assert.Equal(t, ":9766", cfg.TorqueAddr, "Expected TorqueAddr :9766")
	assert.Equal(t, ":9000", cfg.HTTPAddr, "Expected HTTPAddr :9000")
	assert.Equal(t, "/tmp/robomon-events.log", cfg.EventsLog)
	assert.Equal(t, "/tmp/robomon-settings.json", cfg.SettingsFile)
	assert.Equal(t, 50, cfg.HistorySize, "Expected HistorySize 50")
	assert.Equal(t, 250, cfg.PublishMs, "Expected PublishMs 250")
	assert.InDelta(t, 2.5, cfg.CooldownSeconds, 0.0001)
	assert.True(t, cfg.Archive, "Expected Archive true")
	assert.Equal(t, "/tmp/robomon-archive.db", cfg.ArchiveDB)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
}

func TestLoadDefaults(t *testing.T) {
	setArgs(t)
	t.Setenv("ROBOMON_CONFIG", "")

	// Run from an empty directory so no stray robomon.toml is picked up
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(cwd) })

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, ":8765", cfg.ThermalAddr, "Expected default ThermalAddr :8765")
	assert.Equal(t, ":8766", cfg.TorqueAddr, "Expected default TorqueAddr :8766")
	assert.Equal(t, ":8000", cfg.HTTPAddr, "Expected default HTTPAddr :8000")
	assert.Equal(t, 200, cfg.HistorySize, "Expected default HistorySize 200")
	assert.Equal(t, 500, cfg.PublishMs, "Expected default PublishMs 500")
	assert.InDelta(t, 5.0, cfg.CooldownSeconds, 0.0001)
	assert.False(t, cfg.Archive, "Expected default Archive false")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel info")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	setArgs(t)

	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(t.TempDir(), "robomon.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("ROBOMON_CONFIG", configPath)

	_, err = config.Load()
	assert.Error(t, err, "Expected an error for invalid config format")
}

func TestLoadInvalidLogLevel(t *testing.T) {
	setArgs(t)

	configContent := []byte(`
log_level = "loud"
`)
	configPath := filepath.Join(t.TempDir(), "robomon.toml")
	err := os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("ROBOMON_CONFIG", configPath)

	_, err = config.Load()
	assert.Error(t, err, "Expected an error for an unknown log level")
}

func TestValidate(t *testing.T) {
	valid := &config.Config{
		ThermalAddr:     ":8765",
		TorqueAddr:      ":8766",
		HTTPAddr:        ":8000",
		HistorySize:     200,
		PublishMs:       500,
		CooldownSeconds: 5.0,
		LogLevel:        "info",
	}
	require.NoError(t, valid.Validate())

	broken := *valid
	broken.HistorySize = 0
	assert.Error(t, broken.Validate(), "Expected an error for zero history size")

	broken = *valid
	broken.CooldownSeconds = -1
	assert.Error(t, broken.Validate(), "Expected an error for negative cooldown")

	broken = *valid
	broken.Archive = true
	broken.ArchiveDB = ""
	assert.Error(t, broken.Validate(), "Expected an error for archive without a database path")
}
