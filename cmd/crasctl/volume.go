package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jfreymuth/cras"
)

func newVolumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "volume [N]",
		Short: "Show or set the system volume (0-100)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var volume uint64
			if len(args) == 1 {
				var err error
				volume, err = strconv.ParseUint(args[0], 10, 32)
				if err != nil || volume > 100 {
					return fmt.Errorf("invalid volume %q: want 0-100", args[0])
				}
			}
			return ctx.withClient(func(c *cras.Client) error {
				if len(args) == 1 {
					return c.SetSystemVolume(uint32(volume))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", c.SystemVolume())
				return nil
			})
		},
	}
}

func newMuteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:       "mute [on|off]",
		Short:     "Show or set the system mute",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *cras.Client) error {
				if len(args) == 1 {
					return c.SetSystemMute(args[0] == "on")
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "system: %s\n", onOff(c.SystemMute()))
				fmt.Fprintf(out, "user: %s\n", onOff(c.UserMute()))
				fmt.Fprintf(out, "locked: %s\n", onOff(c.SystemMuteLocked()))
				fmt.Fprintf(out, "capture: %s\n", onOff(c.CaptureMute()))
				return nil
			})
		},
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
