package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSystemd(t *testing.T) *[]string {
	t.Helper()

	oldPath, oldCtl := unitPath, systemctl
	t.Cleanup(func() { unitPath, systemctl = oldPath, oldCtl })

	unitPath = filepath.Join(t.TempDir(), "systemd", "wle.service")
	var calls []string
	systemctl = func(args ...string) error {
		calls = append(calls, strings.Join(args, " "))
		return nil
	}
	return &calls
}

func TestUnit(t *testing.T) {
	unit, err := Unit("/usr/local/bin/wle", "/etc/wle.yaml", "debug")
	require.NoError(t, err)
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/wle daemon --config /etc/wle.yaml --log-level debug\n")
	assert.Contains(t, unit, "ExecReload=/bin/kill -HUP $MAINPID\n")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}

func TestInstallUninstall(t *testing.T) {
	calls := fakeSystemd(t)

	require.NoError(t, Install("/etc/wle.yaml", "info"))
	b, err := os.ReadFile(unitPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "daemon --config /etc/wle.yaml")

	require.NoError(t, Uninstall())
	_, err = os.Stat(unitPath)
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, []string{
		"daemon-reload",
		"enable --now wle.service",
		"disable --now wle.service",
		"daemon-reload",
	}, *calls)
}

func TestUninstallMissingUnit(t *testing.T) {
	calls := fakeSystemd(t)

	require.NoError(t, Uninstall())
	assert.Equal(t, []string{"disable --now wle.service"}, *calls)
}
