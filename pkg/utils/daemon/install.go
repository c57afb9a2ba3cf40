// Package daemon installs the wle daemon as a systemd service.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/sirupsen/logrus"
)

var (
	unitPath = "/etc/systemd/system/wle.service"

	// systemctl runs systemctl with args.
	systemctl = func(args ...string) error {
		out, err := exec.Command("systemctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
		return nil
	}
)

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description=wle water level emitter
After=network-online.target
Wants=network-online.target

[Service]
ExecStart={{.Exe}} daemon --config {{.Config}} --log-level {{.LogLevel}}
ExecReload=/bin/kill -HUP $MAINPID
Restart=always
RestartSec=5

[Install]
WantedBy=multi-user.target
`))

// Unit renders the service unit for the binary at exePath.
func Unit(exePath, configPath, logLevel string) (string, error) {
	var b strings.Builder
	err := unitTemplate.Execute(&b, struct {
		Exe, Config, LogLevel string
	}{exePath, configPath, logLevel})
	if err != nil {
		return "", fmt.Errorf("failed to render unit: %w", err)
	}
	return b.String(), nil
}

// Install writes the unit for the current executable, then enables and
// starts it.
func Install(configPath, logLevel string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	unit, err := Unit(exePath, configPath, logLevel)
	if err != nil {
		return err
	}

	if _, err := os.Stat(unitPath); err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath)
	}

	logrus.Infof("writing systemd unit to %s", unitPath)
	err = os.MkdirAll(filepath.Dir(unitPath), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(unitPath), err)
	}
	err = os.WriteFile(unitPath, []byte(unit), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath, err)
	}

	logrus.Infof("starting wle")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", "--now", filepath.Base(unitPath))
}
