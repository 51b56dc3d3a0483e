package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudnine-labs/presence/internal/events"
	"github.com/cloudnine-labs/presence/internal/gateway"
	"github.com/cloudnine-labs/presence/internal/presence"
	"github.com/cloudnine-labs/presence/internal/weighted"
)

// Session owns one identity's gateway connection lifecycle: connect,
// handshake, heartbeat cadence, payload rotation, and reconnection with
// exponential backoff. All of its state is confined to the Run goroutine;
// other goroutines may only read the lifecycle state snapshot.
type Session struct {
	id     uuid.UUID
	token  string
	prefix string
	cfg    Config

	synth  *presence.Synthesizer
	rng    *rand.Rand
	sink   events.Sink
	logger *slog.Logger

	// newConn is swapped in tests.
	newConn func() gateway.Conn

	mu    sync.RWMutex
	state State
}

// New creates a Session for one identity token. The rng must be dedicated to
// this session; it is not safe for sharing.
func New(token string, cfg Config, synth *presence.Synthesizer, rng *rand.Rand, sink events.Sink, logger *slog.Logger) *Session {
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	prefix := events.TokenPrefix(token)

	s := &Session{
		id:     id,
		token:  token,
		prefix: prefix,
		cfg:    cfg,
		synth:  synth,
		rng:    rng,
		sink:   sink,
		logger: logger.With("token", prefix),
		state:  StateDisconnected,
	}
	s.newConn = func() gateway.Conn {
		return gateway.New(s.cfg.Gateway, s.logger)
	}
	return s
}

// ID returns the session's run identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run blocks for the session's full lifetime. It returns nil when ctx is
// cancelled, ErrRetriesExhausted after MaxRetries consecutive connection
// failures, or a structural error (bad weights, empty catalog) immediately
// and without retrying. Failures never escape to other sessions; the caller
// only sees the final verdict.
func (s *Session) Run(ctx context.Context) error {
	retries := 0

	for {
		reachedActive, err := s.attempt(ctx)
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return nil
		}
		if reachedActive {
			retries = 0
		}

		if isStructural(err) {
			s.terminate(err)
			return err
		}

		if retries >= s.cfg.MaxRetries {
			s.terminate(err)
			return fmt.Errorf("%w after %d retries: %v", ErrRetriesExhausted, retries, err)
		}

		delay := Backoff(s.cfg.BaseBackoff, retries, s.cfg.MaxBackoff)
		s.sink.Emit(events.Event{
			Kind:        events.ConnectionFailed,
			SessionID:   s.id,
			TokenPrefix: s.prefix,
			Reason:      err.Error(),
			Retry:       retries + 1,
			At:          time.Now(),
		})
		s.logger.Warn("connection failed",
			"error", err,
			"retry_in", delay,
			"attempt", retries+1,
			"max_retries", s.cfg.MaxRetries,
		)

		s.setState(StateBackoff)
		select {
		case <-ctx.Done():
			s.setState(StateDisconnected)
			return nil
		case <-time.After(delay):
		}
		retries++
	}
}

// attempt runs one full connection lifetime: dial, handshake, identify,
// initial payload, then the heartbeat/rotation loop until the connection
// fails or ctx is cancelled. The connection is released on every exit path.
// reachedActive reports whether the session made it past the handshake.
func (s *Session) attempt(ctx context.Context) (reachedActive bool, err error) {
	s.setState(StateConnecting)

	conn := s.newConn()
	defer conn.Close()

	if err := conn.Connect(ctx); err != nil {
		return false, fmt.Errorf("dial gateway: %w", err)
	}

	s.setState(StateHandshaking)

	interval, err := s.awaitHello(ctx, conn)
	if err != nil {
		return false, err
	}

	if err := s.sendIdentify(conn); err != nil {
		return false, fmt.Errorf("send identify: %w", err)
	}

	payload, err := s.freshPayload()
	if err != nil {
		return false, err
	}
	if err := conn.Send(payload); err != nil {
		return false, fmt.Errorf("send initial payload: %w", err)
	}

	s.setState(StateActive)
	s.logger.Info("session active", "heartbeat_interval", interval)

	return true, s.serve(ctx, conn, interval, payload)
}

// serve is the Active-state control loop. A single loop multiplexes the
// heartbeat ticker, the one-shot rotation timer, and transport errors, so
// every send on the connection is serialized by construction and the
// current payload slot is replaced atomically between ticks.
func (s *Session) serve(ctx context.Context, conn gateway.Conn, interval time.Duration, lastPayload []byte) error {
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	rotate := time.NewTimer(s.cfg.RotateAfter)
	defer rotate.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-conn.Errors():
			return fmt.Errorf("connection lost: %w", err)

		case <-heartbeat.C:
			if err := conn.Send(heartbeatFrame); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
			if err := conn.Send(lastPayload); err != nil {
				return fmt.Errorf("resend payload: %w", err)
			}

		case <-rotate.C:
			payload, err := s.freshPayload()
			if err != nil {
				return err
			}
			if err := conn.Send(payload); err != nil {
				return fmt.Errorf("send rotated payload: %w", err)
			}
			lastPayload = payload
		}
	}
}

// awaitHello receives and validates the server hello within the handshake
// timeout, returning the heartbeat cadence it advertises.
func (s *Session) awaitHello(ctx context.Context, conn gateway.Conn) (time.Duration, error) {
	var data []byte
	select {
	case data = <-conn.Frames():
	case err := <-conn.Errors():
		return 0, fmt.Errorf("%w: %v", ErrHandshake, err)
	case <-time.After(s.cfg.HandshakeTimeout):
		return 0, fmt.Errorf("%w: no hello within %v", ErrHandshake, s.cfg.HandshakeTimeout)
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	var hello helloFrame
	if err := json.Unmarshal(data, &hello); err != nil {
		return 0, fmt.Errorf("%w: malformed hello: %v", ErrHandshake, err)
	}
	if hello.Data.HeartbeatInterval <= 0 {
		return 0, fmt.Errorf("%w: hello missing heartbeat interval", ErrHandshake)
	}

	return time.Duration(hello.Data.HeartbeatInterval) * time.Millisecond, nil
}

func (s *Session) sendIdentify(conn gateway.Conn) error {
	device, err := weighted.Pick(s.rng, deviceWeights)
	if err != nil {
		return err
	}

	frame := identifyFrame{
		Op: 2,
		Data: identifyData{
			Token: s.token,
			Properties: properties{
				OS:      device,
				Browser: device,
				Device:  device,
			},
		},
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Send(data)
}

// freshPayload synthesizes the next presence update and reports it.
func (s *Session) freshPayload() ([]byte, error) {
	p, err := s.synth.Build()
	if err != nil {
		return nil, fmt.Errorf("synthesize payload: %w", err)
	}

	data, err := json.Marshal(p.Frame)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	s.sink.Emit(events.Event{
		Kind:        events.PayloadUpdated,
		SessionID:   s.id,
		TokenPrefix: s.prefix,
		StatusKind:  p.Kind,
		At:          time.Now(),
	})

	return data, nil
}

// terminate records the terminal state and emits exactly one terminated
// event.
func (s *Session) terminate(cause error) {
	s.setState(StateTerminated)
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	s.sink.Emit(events.Event{
		Kind:        events.SessionTerminated,
		SessionID:   s.id,
		TokenPrefix: s.prefix,
		Reason:      reason,
		At:          time.Now(),
	})
	s.logger.Error("session terminated", "reason", reason)
}

// isStructural reports whether err indicates a setup defect that retrying
// cannot fix.
func isStructural(err error) bool {
	return errors.Is(err, presence.ErrEmptyCatalog) || errors.Is(err, weighted.ErrInvalidWeights)
}
