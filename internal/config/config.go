package config

import "time"

// Config is the root runtime configuration for the presence keeper.
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Session SessionConfig `yaml:"session"`
	Data    DataConfig    `yaml:"data"`
	Log     LogConfig     `yaml:"log"`
}

// GatewayConfig holds transport settings shared by every connection.
type GatewayConfig struct {
	URL          string        `yaml:"url"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	StaleAfter   time.Duration `yaml:"stale_after"`
	BufferSize   int           `yaml:"buffer_size"`
}

// SessionConfig holds per-session lifecycle policy.
type SessionConfig struct {
	MaxRetries       int           `yaml:"max_retries"`
	BaseBackoff      time.Duration `yaml:"base_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	RotateInterval   time.Duration `yaml:"rotate_interval"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	StartStagger     time.Duration `yaml:"start_stagger"`
}

// DataConfig locates the catalog files.
type DataConfig struct {
	Dir         string `yaml:"dir"`
	ConfigFile  string `yaml:"config_file"`
	TracksFile  string `yaml:"tracks_file"`
	PhrasesFile string `yaml:"phrases_file"`
	TokensFile  string `yaml:"tokens_file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
