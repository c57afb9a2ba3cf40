package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/wle/pkg/version"
)

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

// newBoundCommand prints a calibration bound, or sets it when given a value.
func newBoundCommand(
	name, short, long string,
	getFunc func() (int, error),
	setFunc func(int) (int, error),
) *cobra.Command {
	return &cobra.Command{
		Use:     name + " [distance]",
		Short:   short,
		Long:    long,
		GroupID: gBasic,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				v, err := getFunc()
				if err != nil {
					return err
				}
				cmd.Println(v)
				return nil
			}

			v, err := parseIntArg(args, name+" distance")
			if err != nil {
				return err
			}
			if v < 0 || v > 65535 {
				return fmt.Errorf("%s distance must be between 0 and 65535, got %d", name, v)
			}

			ret, err := setFunc(v)
			if err != nil {
				return fmt.Errorf("failed to set %s distance: %v", name, err)
			}
			logrus.Infof("successfully set %s distance to %d cm", name, ret)
			return nil
		},
	}
}

func getVersion() (string, string, error) {
	daemonVersion, err := apiClient().GetVersion()
	if err != nil {
		return version.Version, "", err
	}
	return version.Version, daemonVersion, nil
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
