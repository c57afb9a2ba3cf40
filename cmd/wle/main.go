package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/charlie0129/wle/pkg/client"
)

var (
	logLevel   = "info"
	daemonAddr = client.DefaultAddr
	configPath = "/etc/wle.yaml"
)

var (
	gBasic        = "Basic:"
	gAdvanced     = "Advanced:"
	commandGroups = []string{
		gBasic,
		gAdvanced,
	}
)

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{})
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.Kitchen,
		})
	}

	return nil
}

func handleCmdError(err error) {
	if errors.Is(err, client.ErrDaemonNotRunning) {
		fmt.Fprintln(os.Stderr, "\nError: wle daemon is not running")
		fmt.Fprintf(os.Stderr, "Is the daemon running and listening on %s? Use --daemon-addr to point to it.\n", daemonAddr)
	} else if errors.Is(err, client.ErrNotFound) {
		fmt.Fprintln(os.Stderr, "\nError: the daemon does not know this endpoint")
		fmt.Fprintln(os.Stderr, "Make sure the client and the daemon are the same version.")
	}
}

func apiClient() *client.Client {
	return client.NewClient(daemonAddr)
}

func main() {
	cmd := NewCommand()
	if err := cmd.Execute(); err != nil {
		handleCmdError(err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wle",
		Short: "wle reports the water level measured by an ultrasonic sensor",
		Long: `wle reports the water level measured by an ultrasonic sensor.

The daemon samples the sensor, maps the distance to a fill percentage using
the calibrated min and max distances, and reports changes on a status page,
to WebSocket clients and to an MQTT broker. The other commands talk to a
running daemon.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := setupLogger()
			if err != nil {
				return err
			}

			if cmd.GroupID != gBasic {
				return nil
			}
			if clientVersion, daemonVersion, err := getVersion(); err == nil && daemonVersion != clientVersion {
				logrus.WithFields(logrus.Fields{
					"clientVersion": clientVersion,
					"daemonVersion": daemonVersion,
				}).Warn("Version mismatch between client and daemon. wle may not work as expected.")
			}

			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVar(&daemonAddr, "daemon-addr", daemonAddr, "wle daemon HTTP address")

	for _, i := range commandGroups {
		cmd.AddGroup(&cobra.Group{
			ID:    i,
			Title: i,
		})
	}

	cmd.AddCommand(
		NewDaemonCommand(),
		NewVersionCommand(),
		NewMinCommand(),
		NewMaxCommand(),
		NewStatusCommand(),
		NewWatchCommand(),
		NewConfigCommand(),
		NewInstallCommand(),
		NewUninstallCommand(),
	)

	return cmd
}
