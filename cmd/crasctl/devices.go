package main

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jfreymuth/cras"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List input and output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *cras.Client) error {
				var rows [][]string
				add := func(dir string, devs iter.Seq[*cras.Device]) {
					for d := range devs {
						rows = append(rows, []string{
							dir,
							strconv.FormatUint(uint64(d.Index()), 10),
							d.Name(),
							strconv.Itoa(d.MaxSupportedChannels()),
							fmt.Sprintf("%#x", d.StableID()),
						})
					}
				}
				add("output", c.OutputDevices())
				add("input", c.InputDevices())
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"DIR", "INDEX", "NAME", "CHANNELS", "STABLE ID"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newNodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List input and output nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(c *cras.Client) error {
				var rows [][]string
				add := func(dir string, nodes iter.Seq[*cras.Node]) {
					for n := range nodes {
						level := strconv.FormatUint(uint64(n.Volume()), 10)
						if dir == "input" {
							level = strconv.FormatInt(int64(n.CaptureGain()), 10)
						}
						rows = append(rows, []string{
							dir,
							fmt.Sprintf("%d:%d", n.DeviceIndex(), n.Index()),
							n.Name(),
							n.Type(),
							yesNo(n.Plugged()),
							yesNo(n.Active()),
							level,
						})
					}
				}
				add("output", c.OutputNodes())
				add("input", c.InputNodes())
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"DIR", "ID", "NAME", "TYPE", "PLUGGED", "ACTIVE", "LEVEL"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
