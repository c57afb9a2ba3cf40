package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/charlie0129/wle/pkg/types"
)

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of wle",
		Long:    `Get the current water level, calibration and connection state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := apiClient().GetStatus()
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			printStatus(cmd, s, time.Now())
			return nil
		},
	}
}

func printStatus(cmd *cobra.Command, s *types.Status, now time.Time) {
	cmd.Println(bold("Water level:"))
	if s.LevelSet {
		cmd.Printf("  Level: %s\n", bold("%d%%", s.Level))
	} else {
		cmd.Printf("  Level: %s\n", color.YellowString("not measured yet"))
	}
	cmd.Printf("  Distance: %s\n", bold("%.1f cm", s.DistanceCm))
	if !s.LastSampleAt.IsZero() {
		cmd.Printf("  Last sample: %s ago\n", now.Sub(s.LastSampleAt).Round(time.Second))
	}
	if s.LastError != "" {
		cmd.Printf("  Last error: %s\n", color.RedString(s.LastError))
	}
	cmd.Printf("  Samples: %d, changes reported: %d\n", s.Samples, s.Emissions)

	cmd.Println()

	cmd.Println(bold("Calibration:"))
	cmd.Printf("  Min (0%%): %s\n", bold("%d cm", s.MinValue))
	cmd.Printf("  Max (100%%): %s\n", bold("%d cm", s.MaxValue))
	cmd.Printf("  Valid: %s\n", bool2Text(s.MaxValue > s.MinValue))

	cmd.Println()

	cmd.Println(bold("Outputs:"))
	var tel string
	switch s.Telemetry {
	case "connected":
		tel = color.GreenString(s.Telemetry)
	case "disabled":
		tel = s.Telemetry
	default:
		tel = color.RedString(s.Telemetry)
	}
	cmd.Printf("  Telemetry: %s\n", bold("%s", tel))
	cmd.Printf("  Push clients: %s\n", bold("%d", s.PushClients))
}
