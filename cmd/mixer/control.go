package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var volumeCmd = &cobra.Command{
	Use:   "volume ID PERCENT",
	Short: "Set the volume of a session (0-100)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		percent, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid volume %q: %w", args[1], err)
		}
		if !controller.SetVolume(args[0], percent) {
			return fmt.Errorf("failed to set volume of %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: volume %.0f%%\n", args[0], percent)
		return nil
	},
}

var muteCmd = &cobra.Command{
	Use:   "mute ID",
	Short: "Mute a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMute(cmd, args[0], true)
	},
}

var unmuteCmd = &cobra.Command{
	Use:   "unmute ID",
	Short: "Unmute a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setMute(cmd, args[0], false)
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle ID",
	Short: "Flip the mute state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		muted, ok := controller.ToggleMute(args[0])
		if !ok {
			return fmt.Errorf("failed to toggle mute of %s", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], muteState(muted))
		return nil
	},
}

func setMute(cmd *cobra.Command, id string, muted bool) error {
	if !controller.SetMute(id, muted) {
		return fmt.Errorf("failed to %s %s", muteVerb(muted), id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, muteState(muted))
	return nil
}

func muteVerb(muted bool) string {
	if muted {
		return "mute"
	}
	return "unmute"
}

func muteState(muted bool) string {
	if muted {
		return "muted"
	}
	return "unmuted"
}
