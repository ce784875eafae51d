package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/cobra"

	"github.com/jfreymuth/cras"
	"github.com/jfreymuth/cras/proto"
)

const wavFormatPCM = 1

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var duration time.Duration
	var rate uint32
	var channels int
	cmd := &cobra.Command{
		Use:   "record FILE",
		Short: "Record to a 16-bit wav file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				return fmt.Errorf("invalid duration %v", duration)
			}
			if rate == 0 {
				return fmt.Errorf("invalid rate %d", rate)
			}
			if channels <= 0 || channels > proto.ChannelMax {
				return fmt.Errorf("invalid channel count %d", channels)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			frames := int(int64(rate) * int64(duration) / int64(time.Second))
			err = ctx.withClient(func(c *cras.Client) error {
				s, err := c.NewCaptureStream(channels, proto.FormatS16LE, rate, cfg.BlockSize, ctx.streamOptions()...)
				if err != nil {
					return err
				}
				e := wav.NewEncoder(f, int(rate), 16, channels, wavFormatPCM)
				if err := record(s, e, frames); err != nil {
					s.Close()
					e.Close()
					return err
				}
				if err := s.Close(); err != nil {
					e.Close()
					return err
				}
				return e.Close()
			}, cras.ClientCapture(true))
			if err != nil {
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", 5*time.Second, "Recording length")
	cmd.Flags().Uint32Var(&rate, "rate", 48000, "Frame rate")
	cmd.Flags().IntVar(&channels, "channels", 2, "Channel count")
	return cmd
}

// record copies frames frames from s to e.
func record(s cras.CaptureSource, e *wav.Encoder, frames int) error {
	f := s.Format()
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: int(f.NumChannels), SampleRate: int(f.FrameRate)},
		SourceBitDepth: 16,
	}
	for frames > 0 {
		buf, err := s.NextBuffer()
		if err != nil {
			return err
		}
		n := min(buf.Frames(), frames)
		samples := buf.Int16()[:n*int(f.NumChannels)]
		ib.Data = ib.Data[:0]
		for _, v := range samples {
			ib.Data = append(ib.Data, int(v))
		}
		if err := buf.Commit(n); err != nil {
			return err
		}
		if err := e.Write(ib); err != nil {
			return err
		}
		frames -= n
	}
	return nil
}
