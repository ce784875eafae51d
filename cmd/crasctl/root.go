package main

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jfreymuth/cras"
	"github.com/jfreymuth/cras/internal/log"
)

type dialFunc func(opts ...cras.ClientOption) (*cras.Client, error)

type commandContext struct {
	configFlag *string
	socketFlag *string
	debugFlag  *bool

	dial dialFunc

	configOnce sync.Once
	config     *Config
	configPath string
	configErr  error

	logOnce sync.Once
	logger  *logrus.Logger
}

func newRootCommand(dial dialFunc) *cobra.Command {
	var configFlag, socketFlag string
	var debugFlag bool

	ctx := &commandContext{
		configFlag: &configFlag,
		socketFlag: &socketFlag,
		debugFlag:  &debugFlag,
		dial:       dial,
	}

	rootCmd := &cobra.Command{
		Use:           "crasctl",
		Short:         "Inspect and control the CRAS audio server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket-type", "", "Server socket (legacy, unified, playback, capture, vms_legacy, vms_unified, plugin_playback, plugin_unified)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Log protocol details")

	rootCmd.AddCommand(newVolumeCommand(ctx))
	rootCmd.AddCommand(newMuteCommand(ctx))
	rootCmd.AddCommand(newDevicesCommand(ctx))
	rootCmd.AddCommand(newNodesCommand(ctx))
	rootCmd.AddCommand(newDebugCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))
	rootCmd.AddCommand(newRecordCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

func (c *commandContext) ensureConfig() (*Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configPath, c.configErr = LoadConfig(*c.configFlag)
		if c.configErr == nil && *c.socketFlag != "" {
			c.config.SocketType = *c.socketFlag
			c.configErr = c.config.Validate()
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) getLogger() *logrus.Logger {
	c.logOnce.Do(func() {
		c.logger = log.GetLogger()
		c.logger.SetOutput(os.Stderr)
		fd := os.Stderr.Fd()
		tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		c.logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   tty,
			DisableColors: !tty,
			FullTimestamp: true,
		})
		if *c.debugFlag {
			c.logger.SetLevel(logrus.DebugLevel)
		}
	})
	return c.logger
}

// withClient connects to the server, runs fn and disconnects.
func (c *commandContext) withClient(fn func(*cras.Client) error, opts ...cras.ClientOption) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger := c.getLogger()
	all := []cras.ClientOption{
		cras.ClientSocketType(cfg.socketType()),
		cras.ClientType(cfg.clientType()),
		cras.ClientLogger(logger),
	}
	if cfg.SocketDir != "" {
		all = append(all, cras.ClientSocketDir(cfg.SocketDir))
	}
	client, err := c.dial(append(all, opts...)...)
	if err != nil {
		return err
	}
	defer client.Close()
	logger.WithField("client_id", client.ID()).Debug("connected")
	return fn(client)
}

func (c *commandContext) streamOptions() []cras.StreamOption {
	if c.config != nil && c.config.Device != nil {
		return []cras.StreamOption{cras.StreamDevice(uint32(*c.config.Device))}
	}
	return nil
}

// signalContext returns a context cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
