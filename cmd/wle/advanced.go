package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/charlie0129/wle/pkg/config"
	"github.com/charlie0129/wle/pkg/daemon"
	"github.com/charlie0129/wle/pkg/version"
)

// NewDaemonCommand .
func NewDaemonCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "daemon",
		Short:   "Run wle daemon in the foreground",
		GroupID: gAdvanced,
		RunE: func(_ *cobra.Command, _ []string) error {
			logrus.WithFields(logrus.Fields{
				"version": version.Version,
				"commit":  version.GitCommit,
			}).Info("wle daemon starting")
			return daemon.Run(configPath)
		},
	}
}

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Print the daemon's effective configuration",
		GroupID: gAdvanced,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := apiClient().GetConfig()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(conf)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %v", err)
			}
			cmd.Print(string(b))
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Long: `Write a config file with the default settings to the path given by --config.

An existing file is kept unless --force is given.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite it", configPath)
			}
			f := config.NewFileFromConfig(config.DefaultRawFileConfig(), configPath)
			if err := f.Save(); err != nil {
				return err
			}
			logrus.Infof("default config written to %s", configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	cmd.AddCommand(initCmd)
	return cmd
}
