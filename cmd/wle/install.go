package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/wle/pkg/config"
	daemonutils "github.com/charlie0129/wle/pkg/utils/daemon"
)

var gInstallation = "Installation:"

func init() {
	commandGroups = append(commandGroups, gInstallation)
}

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "install",
		Short:   "Install wle as a systemd service",
		GroupID: gInstallation,
		Long: `Install wle daemon as a systemd service.

This makes wle run in the background and automatically start on boot. A
default config file is written to --config if none exists. You must run this
command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				f := config.NewFileFromConfig(config.DefaultRawFileConfig(), configPath)
				if err := f.Save(); err != nil {
					return err
				}
				logrus.Infof("default config written to %s", configPath)
			}

			err := daemonutils.Install(configPath, logLevel)
			if err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v. Are you root?", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()
			cmd.Printf("systemd will use current binary (%s) at startup so please make sure you do not move this binary. Once this binary is moved or deleted, you will need to run ``wle install'' again.\n", exePath)

			return nil
		},
	}
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the wle systemd service",
		GroupID: gInstallation,
		Long: `Stop wle and remove its systemd service. The config file and the
calibration image are kept.

You must run this command as root.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			logrus.Infof("successfully uninstalled wle")
			return nil
		},
	}
}
