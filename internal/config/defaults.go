package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultGatewayURL       = "wss://gateway.discord.gg/?v=6&encoding=json"
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultStaleAfter       = 2 * time.Minute
	DefaultBufferSize       = 64
	DefaultMaxRetries       = 5
	DefaultBaseBackoff      = 5 * time.Second
	DefaultMaxBackoff       = 60 * time.Second
	DefaultRotateInterval   = 300 * time.Second
	DefaultHandshakeTimeout = 15 * time.Second
	DefaultStartStagger     = 100 * time.Millisecond
	DefaultDataDir          = "db"
	DefaultConfigFile       = "config.json"
	DefaultTracksFile       = "spotify songs.json"
	DefaultPhrasesFile      = "custom status.txt"
	DefaultTokensFile       = "tokens.txt"
	DefaultLogLevel         = "info"
)

func (c *Config) applyDefaults() {
	// Gateway defaults
	if c.Gateway.URL == "" {
		c.Gateway.URL = DefaultGatewayURL
	}
	if c.Gateway.DialTimeout == 0 {
		c.Gateway.DialTimeout = DefaultDialTimeout
	}
	if c.Gateway.WriteTimeout == 0 {
		c.Gateway.WriteTimeout = DefaultWriteTimeout
	}
	if c.Gateway.StaleAfter == 0 {
		c.Gateway.StaleAfter = DefaultStaleAfter
	}
	if c.Gateway.BufferSize == 0 {
		c.Gateway.BufferSize = DefaultBufferSize
	}

	// Session defaults
	if c.Session.MaxRetries == 0 {
		c.Session.MaxRetries = DefaultMaxRetries
	}
	if c.Session.BaseBackoff == 0 {
		c.Session.BaseBackoff = DefaultBaseBackoff
	}
	if c.Session.MaxBackoff == 0 {
		c.Session.MaxBackoff = DefaultMaxBackoff
	}
	if c.Session.RotateInterval == 0 {
		c.Session.RotateInterval = DefaultRotateInterval
	}
	if c.Session.HandshakeTimeout == 0 {
		c.Session.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Session.StartStagger == 0 {
		c.Session.StartStagger = DefaultStartStagger
	}

	// Data defaults
	if c.Data.Dir == "" {
		c.Data.Dir = DefaultDataDir
	}
	if c.Data.ConfigFile == "" {
		c.Data.ConfigFile = DefaultConfigFile
	}
	if c.Data.TracksFile == "" {
		c.Data.TracksFile = DefaultTracksFile
	}
	if c.Data.PhrasesFile == "" {
		c.Data.PhrasesFile = DefaultPhrasesFile
	}
	if c.Data.TokensFile == "" {
		c.Data.TokensFile = DefaultTokensFile
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
