package session

import (
	"errors"
	"time"

	"github.com/cloudnine-labs/presence/internal/gateway"
)

// Session errors.
var (
	// ErrHandshake indicates a malformed or missing server hello.
	ErrHandshake = errors.New("gateway handshake failed")

	// ErrRetriesExhausted indicates the session gave up reconnecting.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// State is a session's lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateHandshaking  State = "handshaking"
	StateActive       State = "active"
	StateBackoff      State = "backoff"
	StateTerminated   State = "terminated"
)

// Config holds per-session policy.
type Config struct {
	Gateway          gateway.Config
	MaxRetries       int           // Consecutive failures tolerated before Terminated
	BaseBackoff      time.Duration // First reconnect delay
	MaxBackoff       time.Duration // Backoff ceiling
	RotateAfter      time.Duration // Delay before the one-shot payload rotation
	HandshakeTimeout time.Duration // Bounded wait for the server hello
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(gatewayURL string) Config {
	return Config{
		Gateway:          gateway.DefaultConfig(gatewayURL),
		MaxRetries:       5,
		BaseBackoff:      5 * time.Second,
		MaxBackoff:       60 * time.Second,
		RotateAfter:      300 * time.Second,
		HandshakeTimeout: 15 * time.Second,
	}
}

// helloFrame is the first server frame; it must carry the heartbeat cadence.
type helloFrame struct {
	Op   int `json:"op"`
	Data struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	} `json:"d"`
}

// identifyFrame authenticates the session after the hello.
type identifyFrame struct {
	Op   int          `json:"op"`
	Data identifyData `json:"d"`
	S    any          `json:"s"`
	T    any          `json:"t"`
}

type identifyData struct {
	Token      string     `json:"token"`
	Properties properties `json:"properties"`
}

// properties is the client fingerprint. All three fields carry the same
// drawn device label.
type properties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

// heartbeatFrame is the fixed op-1 ack re-sent every heartbeat tick.
var heartbeatFrame = []byte(`{"op": 1, "d": null}`)

// deviceWeights skews the identify fingerprint toward desktop clients.
var deviceWeights = map[string]int{
	"Discord iOS": 25,
	"Windows":     75,
}

// Backoff returns the reconnect delay for the given retry count:
// min(base·2^retry, max).
func Backoff(base time.Duration, retry int, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < retry; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
