package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jfreymuth/cras"
	"github.com/jfreymuth/cras/proto"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "play FILE",
		Short: "Play a wav, mp3 or ogg file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			src, err := openSource(args[0], f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withClient(func(c *cras.Client) error {
				return play(c, src, cfg.BlockSize, ctx.streamOptions())
			})
		},
	}
}

func play(c *cras.Client, src source, blockSize int, opts []cras.StreamOption) error {
	if ch := src.Channels(); ch <= 0 || ch > proto.ChannelMax {
		return fmt.Errorf("unsupported channel count %d", ch)
	}
	if src.SampleRate() <= 0 {
		return fmt.Errorf("unsupported sample rate %d", src.SampleRate())
	}
	p, err := c.NewPlaybackStream(src.Channels(), proto.FormatS16LE, uint32(src.SampleRate()), blockSize, opts...)
	if err != nil {
		return err
	}
	r := cras.Int16Reader(src.ReadSamples)
	for {
		buf, err := p.NextBuffer()
		if err != nil {
			p.Close()
			return err
		}
		_, err = buf.Fill(r)
		if cerr := buf.Close(); cerr != nil {
			p.Close()
			return cerr
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.Close()
			return err
		}
	}
	return p.Close()
}
