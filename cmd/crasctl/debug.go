package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jfreymuth/cras"
	"github.com/jfreymuth/cras/proto"
)

func newDebugCommand(ctx *commandContext) *cobra.Command {
	var events bool
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Dump the audio thread state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *cras.Client) error {
				d, err := c.AudioDebugInfo()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				devRows := make([][]string, 0, len(d.Devices))
				for _, dev := range d.Devices {
					devRows = append(devRows, []string{
						strconv.FormatUint(uint64(dev.DevIdx), 10),
						proto.CString(dev.DevName[:]),
						proto.Direction(dev.Direction).String(),
						strconv.FormatUint(uint64(dev.FrameRate), 10),
						strconv.FormatUint(uint64(dev.NumChannels), 10),
						strconv.FormatUint(uint64(dev.BufferSize), 10),
						strconv.FormatUint(uint64(dev.NumUnderruns), 10),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"DEV", "NAME", "DIR", "RATE", "CHANNELS", "BUFFER", "UNDERRUNS"},
					devRows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))

				streamRows := make([][]string, 0, len(d.Streams))
				for _, s := range d.Streams {
					streamRows = append(streamRows, []string{
						proto.StreamID(s.StreamID).String(),
						strconv.FormatUint(uint64(s.DevIdx), 10),
						proto.Direction(s.Direction).String(),
						proto.ClientType(s.ClientType).String(),
						strconv.FormatUint(uint64(s.FrameRate), 10),
						strconv.FormatUint(uint64(s.BufferFrames), 10),
						strconv.FormatUint(uint64(s.NumOverruns), 10),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"STREAM", "DEV", "DIR", "CLIENT", "RATE", "BUFFER", "OVERRUNS"},
					streamRows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				))

				if events {
					for _, e := range d.Events {
						fmt.Fprintf(out, "%d.%09d tag=%d data=%d,%d,%d\n", e.Sec(), e.Nsec, e.Tag(), e.Data1, e.Data2, e.Data3)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&events, "events", false, "Print the audio thread event log")
	return cmd
}
