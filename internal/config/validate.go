package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return errors.New("gateway.url is required")
	}
	if !strings.HasPrefix(c.Gateway.URL, "ws://") && !strings.HasPrefix(c.Gateway.URL, "wss://") {
		return fmt.Errorf("gateway.url must be a ws:// or wss:// URL, got %q", c.Gateway.URL)
	}
	if c.Gateway.DialTimeout <= 0 {
		return errors.New("gateway.dial_timeout must be positive")
	}
	if c.Gateway.WriteTimeout <= 0 {
		return errors.New("gateway.write_timeout must be positive")
	}
	if c.Gateway.BufferSize < 1 {
		return errors.New("gateway.buffer_size must be >= 1")
	}

	if c.Session.MaxRetries < 0 {
		return errors.New("session.max_retries must be >= 0")
	}
	if c.Session.BaseBackoff <= 0 {
		return errors.New("session.base_backoff must be positive")
	}
	if c.Session.MaxBackoff < c.Session.BaseBackoff {
		return fmt.Errorf("session.max_backoff (%v) cannot be below base_backoff (%v)",
			c.Session.MaxBackoff, c.Session.BaseBackoff)
	}
	if c.Session.RotateInterval <= 0 {
		return errors.New("session.rotate_interval must be positive")
	}
	if c.Session.HandshakeTimeout <= 0 {
		return errors.New("session.handshake_timeout must be positive")
	}
	if c.Session.StartStagger < 0 {
		return errors.New("session.start_stagger must be >= 0")
	}

	if c.Data.Dir == "" {
		return errors.New("data.dir is required")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	return nil
}

// ConfigPath returns the full path of the weight/catalog config file.
func (d DataConfig) ConfigPath() string { return filepath.Join(d.Dir, d.ConfigFile) }

// TracksPath returns the full path of the track catalog file.
func (d DataConfig) TracksPath() string { return filepath.Join(d.Dir, d.TracksFile) }

// PhrasesPath returns the full path of the custom status phrase file.
func (d DataConfig) PhrasesPath() string { return filepath.Join(d.Dir, d.PhrasesFile) }

// TokensPath returns the full path of the token list file.
func (d DataConfig) TokensPath() string { return filepath.Join(d.Dir, d.TokensFile) }
