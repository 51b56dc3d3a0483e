package gateway

import (
	"errors"
	"time"
)

// Transport errors.
var (
	ErrNotConnected  = errors.New("gateway: not connected")
	ErrAlreadyClosed = errors.New("gateway: already closed")
	ErrStale         = errors.New("gateway: connection stale (no traffic)")
)

// Config configures one gateway connection.
type Config struct {
	URL          string        // Gateway websocket URL
	DialTimeout  time.Duration // Websocket handshake deadline
	WriteTimeout time.Duration // Per-send write deadline
	StaleAfter   time.Duration // Max silence before the conn is declared dead (0 disables)
	BufferSize   int           // Inbound frame channel capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:          url,
		DialTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Second,
		StaleAfter:   2 * time.Minute,
		BufferSize:   64,
	}
}
