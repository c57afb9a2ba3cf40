package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFile_MissingFileUsesDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":80", f.HTTPAddr())
	assert.Equal(t, ":81", f.PushAddr())
	assert.Equal(t, "12", f.TriggerPin())
	assert.Equal(t, "14", f.EchoPin())
	assert.Equal(t, time.Second, f.EchoTimeout())
	assert.False(t, f.MockSensor())
	assert.Equal(t, 10*time.Millisecond, f.TickInterval())
	assert.Equal(t, 100, f.SamplingTicks())
	assert.False(t, f.TelemetryEnabled())
	assert.Equal(t, "water-level-emitter", f.TelemetryClientID())
	assert.Equal(t, "public", f.TelemetryUsername())
	assert.Equal(t, "public", f.TelemetryPassword())
	assert.Equal(t, time.Second, f.TelemetryRetryInterval())
	assert.Equal(t, 115200, f.ConsoleBaudRate())
}

func TestNewFile_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))

	f, err := NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":80", f.HTTPAddr())
}

func TestNewFile_PartialYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":8080"
sensor:
  mock: true
  echoTimeout: 250ms
loop:
  samplingTicks: 0
telemetry:
  broker: "broker.local"
  topicPrefix: "garden/tank"
`), 0644))

	f, err := NewFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", f.HTTPAddr())
	assert.Equal(t, ":81", f.PushAddr())
	assert.True(t, f.MockSensor())
	assert.Equal(t, 250*time.Millisecond, f.EchoTimeout())
	// Non-positive cadence values fall back to the defaults.
	assert.Equal(t, 100, f.SamplingTicks())
	assert.True(t, f.TelemetryEnabled())
	assert.Equal(t, "broker.local", f.TelemetryBroker())
	assert.Equal(t, "garden/tank", f.TelemetryTopicPrefix())
}

func TestNewFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [oops"), 0644))

	_, err := NewFile(path)
	assert.Error(t, err)
}

func TestFile_SaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "wle.yaml")

	require.NoError(t, NewFileFromConfig(DefaultRawFileConfig(), path).Save())

	f, err := NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":80", f.HTTPAddr())
	assert.Equal(t, 10*time.Millisecond, f.TickInterval())
	assert.Equal(t, "/var/lib/wle/eeprom.bin", f.NVRAMPath())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestNewRawFileConfigFromConfig(t *testing.T) {
	_, err := NewRawFileConfigFromConfig(nil)
	assert.Error(t, err)

	raw := DefaultRawFileConfig()
	require.NotNil(t, raw.Telemetry.Broker)
	assert.Equal(t, "", *raw.Telemetry.Broker)
	require.NotNil(t, raw.Loop.SamplingTicks)
	assert.Equal(t, 100, *raw.Loop.SamplingTicks)
}

func TestFile_LogrusFields(t *testing.T) {
	fields := NewFileFromConfig(nil, "").LogrusFields()
	assert.Equal(t, ":80", fields["httpAddr"])
	assert.NotContains(t, fields, "telemetryPassword")
}
