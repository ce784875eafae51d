package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/jfreymuth/cras/proto"
)

// Config holds the settings crasctl connects with.
type Config struct {
	SocketType string `toml:"socket_type"`
	SocketDir  string `toml:"socket_dir"`
	ClientType string `toml:"client_type"`
	BlockSize  int    `toml:"block_size"`
	Device     *int   `toml:"device,omitempty"`
}

// Default returns the configuration used without a config file.
func Default() Config {
	return Config{
		SocketType: proto.SocketUnified.String(),
		ClientType: proto.ClientTypeTest.String(),
		BlockSize:  480,
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/crasctl/config.toml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "crasctl", "config.toml"), nil
}

// LoadConfig reads the config file at path. An empty path means the
// default path, which may be missing.
func LoadConfig(path string) (*Config, string, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return &cfg, "", nil
		}
		path = p
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return &cfg, "", cfg.Validate()
		}
		return nil, "", fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return nil, "", fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, path, nil
}

func (c *Config) Validate() error {
	if _, err := proto.ParseSocketType(c.SocketType); err != nil {
		return err
	}
	if _, err := proto.ParseClientType(c.ClientType); err != nil {
		return err
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	return nil
}

func (c *Config) socketType() proto.SocketType {
	t, _ := proto.ParseSocketType(c.SocketType)
	return t
}

func (c *Config) clientType() proto.ClientType {
	t, _ := proto.ParseClientType(c.ClientType)
	return t
}

// Encode returns the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
