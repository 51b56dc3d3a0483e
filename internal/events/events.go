// Package events defines the structured lifecycle events sessions and the
// orchestrator emit for external logging and progress reporting. The core
// never writes to the console directly; presentation plugs in via Sink.
package events

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind identifies an event type.
type Kind string

const (
	SessionStarted    Kind = "session_started"
	PayloadUpdated    Kind = "payload_updated"
	ConnectionFailed  Kind = "connection_failed"
	SessionTerminated Kind = "session_terminated"
	Progress          Kind = "progress"
)

// Event is one lifecycle observation. Only the fields relevant to the Kind
// are populated.
type Event struct {
	Kind        Kind
	SessionID   uuid.UUID
	TokenPrefix string
	StatusKind  string // PayloadUpdated: chosen presence kind
	Reason      string // ConnectionFailed / SessionTerminated: failure cause
	Retry       int    // ConnectionFailed: upcoming retry number (1-based)
	Started     int    // Progress
	Total       int    // Progress
	At          time.Time
}

// Sink consumes events. Implementations must be safe for concurrent use;
// every session emits from its own goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard ignores every event.
var Discard Sink = SinkFunc(func(Event) {})

// LogSink renders events through a slog.Logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e Event) {
	switch e.Kind {
	case SessionStarted:
		s.logger.Info("session started", "session", shortID(e.SessionID), "token", e.TokenPrefix)
	case PayloadUpdated:
		s.logger.Info("presence updated", "session", shortID(e.SessionID), "token", e.TokenPrefix, "kind", e.StatusKind)
	case ConnectionFailed:
		s.logger.Warn("connection failed", "session", shortID(e.SessionID), "token", e.TokenPrefix, "reason", e.Reason, "retry", e.Retry)
	case SessionTerminated:
		s.logger.Error("session terminated", "session", shortID(e.SessionID), "token", e.TokenPrefix, "reason", e.Reason)
	case Progress:
		s.logger.Info("hosting sessions", "started", e.Started, "total", e.Total)
	default:
		s.logger.Info(string(e.Kind))
	}
}

// tokenPrefixLen is how much of a credential may appear in logs and events.
const tokenPrefixLen = 32

// TokenPrefix returns the loggable prefix of a credential; the full token
// never leaves the session.
func TokenPrefix(token string) string {
	if len(token) <= tokenPrefixLen {
		return token
	}
	return token[:tokenPrefixLen]
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
