package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jfreymuth/cras"
)

type volumeState struct {
	volume      uint32
	mute        bool
	captureMute bool
	gain        int32
}

func readVolumeState(c *cras.Client) volumeState {
	return volumeState{
		volume:      c.SystemVolume(),
		mute:        c.SystemMute(),
		captureMute: c.CaptureMute(),
		gain:        c.CaptureGain(),
	}
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print volume changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return ctx.withClient(func(c *cras.Client) error {
				out := cmd.OutOrStdout()
				last := readVolumeState(c)
				fmt.Fprintf(out, "volume %d mute %s capture mute %s gain %d\n", last.volume, onOff(last.mute), onOff(last.captureMute), last.gain)
				t := time.NewTicker(interval)
				defer t.Stop()
				for {
					select {
					case <-sctx.Done():
						return nil
					case <-t.C:
					}
					st := readVolumeState(c)
					if st == last {
						continue
					}
					if st.volume != last.volume {
						fmt.Fprintf(out, "volume %d\n", st.volume)
					}
					if st.mute != last.mute {
						fmt.Fprintf(out, "mute %s\n", onOff(st.mute))
					}
					if st.captureMute != last.captureMute {
						fmt.Fprintf(out, "capture mute %s\n", onOff(st.captureMute))
					}
					if st.gain != last.gain {
						fmt.Fprintf(out, "gain %d\n", st.gain)
					}
					last = st
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "Polling interval")
	return cmd
}
