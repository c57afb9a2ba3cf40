package main

import (
	"github.com/spf13/cobra"

	"github.com/charlie0129/wle/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewMinCommand() *cobra.Command {
	return newBoundCommand(
		"min",
		"Get or set the distance that reads as 0%",
		`Get or set the min distance in centimeters.

A reading at or below this distance from the sensor reports 0%. The value is
stored in non-volatile memory and survives restarts.`,
		func() (int, error) { return apiClient().GetMin() },
		func(v int) (int, error) { return apiClient().SetMin(v) },
	)
}

func NewMaxCommand() *cobra.Command {
	return newBoundCommand(
		"max",
		"Get or set the distance that reads as 100%",
		`Get or set the max distance in centimeters.

A reading at or beyond this distance from the sensor reports 100%. It must be
greater than min, otherwise no level is reported until it is fixed.`,
		func() (int, error) { return apiClient().GetMax() },
		func(v int) (int, error) { return apiClient().SetMax(v) },
	)
}
