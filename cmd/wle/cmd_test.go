package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlie0129/wle/pkg/config"
	"github.com/charlie0129/wle/pkg/types"
)

func TestParseIntArg(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{name: "valid", args: []string{"42"}, want: 42},
		{name: "not a number", args: []string{"x"}, wantErr: true},
		{name: "no args", args: nil, wantErr: true},
		{name: "too many", args: []string{"1", "2"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntArg(tt.args, "value")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPushURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:80", "ws://127.0.0.1:81/"},
		{"http://pi.local:8080", "ws://pi.local:81/"},
		{"[::1]:80", "ws://[::1]:81/"},
	}
	for _, tt := range tests {
		got, err := pushURL(tt.addr, "81")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func capture() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	return cmd, &buf
}

func TestPrintFrame(t *testing.T) {
	cmd, buf := capture()

	printFrame(cmd, "Event:NewLevel:42")
	printFrame(cmd, "x")

	assert.Contains(t, buf.String(), "NewLevel level")
	assert.Contains(t, buf.String(), "42%")
	assert.Contains(t, buf.String(), "x")
}

func TestPrintStatus(t *testing.T) {
	now := time.Now()
	cmd, buf := capture()

	printStatus(cmd, &types.Status{
		Level:        42,
		LevelSet:     true,
		MinValue:     20,
		MaxValue:     69,
		DistanceCm:   40.6,
		LastSampleAt: now.Add(-3 * time.Second),
		Telemetry:    "connected",
		PushClients:  2,
	}, now)

	out := buf.String()
	assert.Contains(t, out, "42%")
	assert.Contains(t, out, "40.6 cm")
	assert.Contains(t, out, "3s ago")
	assert.Contains(t, out, "connected")
	assert.NotContains(t, out, "Last error")
}

func TestConfigInit(t *testing.T) {
	old := configPath
	defer func() { configPath = old }()
	configPath = filepath.Join(t.TempDir(), "wle.yaml")

	root := NewCommand()
	root.SetArgs([]string{"config", "init", "--config", configPath})
	require.NoError(t, root.Execute())

	f, err := config.NewFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, ":80", f.HTTPAddr())
	assert.Equal(t, 100, f.SamplingTicks())

	// refuses to overwrite
	root = NewCommand()
	root.SetArgs([]string{"config", "init", "--config", configPath})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())

	_, err = os.Stat(configPath)
	assert.NoError(t, err)
}
