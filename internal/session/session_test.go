package session

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cloudnine-labs/presence/internal/catalog"
	"github.com/cloudnine-labs/presence/internal/events"
	"github.com/cloudnine-labs/presence/internal/presence"
)

const testToken = "token-0123456789abcdefghijklmnopqrstuvwxyz-0123456789"

// recorder is a thread-safe event sink for assertions.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Emit(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) first(kind events.Kind) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == kind {
			return e, true
		}
	}
	return events.Event{}, false
}

func testCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		StatusWeights: map[string]int{catalog.StatusPlaying: 1},
		GameWeights:   map[string]int{"Minecraft": 1},
	}
}

func newTestSession(t *testing.T, url string, rec *recorder, mutate func(*Config)) *Session {
	t.Helper()

	cfg := DefaultConfig(url)
	cfg.HandshakeTimeout = time.Second
	cfg.BaseBackoff = 10 * time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond
	cfg.RotateAfter = time.Hour
	cfg.Gateway.StaleAfter = 0
	if mutate != nil {
		mutate(&cfg)
	}

	rng := rand.New(rand.NewSource(1))
	synth := presence.New(testCatalog(), rng)
	return New(testToken, cfg, synth, rng, rec, nil)
}

// gatewayServer is a scripted mock gateway. Each accepted connection sends
// the hello and forwards every received frame to the frames channel.
type gatewayServer struct {
	server *httptest.Server
	frames chan []byte

	mu    sync.Mutex
	conns int
}

func newGatewayServer(t *testing.T, heartbeatMillis int, dropAfter int) *gatewayServer {
	t.Helper()

	gs := &gatewayServer{frames: make(chan []byte, 64)}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	gs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		gs.mu.Lock()
		gs.conns++
		gs.mu.Unlock()

		hello := []byte(`{"op":10,"d":{"heartbeat_interval":` + strconv.Itoa(heartbeatMillis) + `}}`)
		if err := ws.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		received := 0
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			received++
			select {
			case gs.frames <- data:
			default:
			}
			if dropAfter > 0 && received >= dropAfter {
				return
			}
		}
	}))
	t.Cleanup(gs.server.Close)
	return gs
}

func (gs *gatewayServer) url() string {
	return "ws" + strings.TrimPrefix(gs.server.URL, "http")
}

func (gs *gatewayServer) connections() int {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.conns
}

func (gs *gatewayServer) nextFrame(t *testing.T) []byte {
	t.Helper()
	select {
	case f := <-gs.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame")
		return nil
	}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		base  time.Duration
		retry int
		want  time.Duration
	}{
		{5 * time.Second, 0, 5 * time.Second},
		{5 * time.Second, 1, 10 * time.Second},
		{5 * time.Second, 2, 20 * time.Second},
		{5 * time.Second, 3, 40 * time.Second},
		{5 * time.Second, 4, 60 * time.Second}, // 80s capped
		{5 * time.Second, 100, 60 * time.Second},
		{0, 3, 0},
	}

	for _, tt := range tests {
		got := Backoff(tt.base, tt.retry, 60*time.Second)
		if got != tt.want {
			t.Errorf("Backoff(%v, %d) = %v, want %v", tt.base, tt.retry, got, tt.want)
		}
	}
}

func TestSession_HandshakeSequence(t *testing.T) {
	gs := newGatewayServer(t, 60_000, 0)
	rec := &recorder{}
	sess := newTestSession(t, gs.url(), rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	// First frame must be the identify.
	var identify identifyFrame
	if err := json.Unmarshal(gs.nextFrame(t), &identify); err != nil {
		t.Fatalf("parse identify: %v", err)
	}
	if identify.Op != 2 {
		t.Errorf("identify op = %d, want 2", identify.Op)
	}
	if identify.Data.Token != testToken {
		t.Errorf("identify token = %q, want session token", identify.Data.Token)
	}
	props := identify.Data.Properties
	if props.OS != props.Browser || props.Browser != props.Device {
		t.Errorf("fingerprint fields differ: %+v", props)
	}
	if props.OS != "Discord iOS" && props.OS != "Windows" {
		t.Errorf("unexpected device label %q", props.OS)
	}

	// Second frame is the initial presence update.
	var update struct {
		Op int `json:"op"`
	}
	if err := json.Unmarshal(gs.nextFrame(t), &update); err != nil {
		t.Fatalf("parse update: %v", err)
	}
	if update.Op != 3 {
		t.Errorf("update op = %d, want 3", update.Op)
	}

	waitForState(t, sess, StateActive)
	if n := rec.count(events.PayloadUpdated); n != 1 {
		t.Errorf("payload-updated events = %d, want 1", n)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run returned %v on shutdown, want nil", err)
	}
}

func TestSession_HeartbeatResendsPayload(t *testing.T) {
	gs := newGatewayServer(t, 50, 0)
	rec := &recorder{}
	sess := newTestSession(t, gs.url(), rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	gs.nextFrame(t) // identify
	initial := gs.nextFrame(t)

	// Each tick sends the op-1 ack followed by the current payload.
	var ack struct {
		Op int `json:"op"`
	}
	if err := json.Unmarshal(gs.nextFrame(t), &ack); err != nil {
		t.Fatalf("parse heartbeat: %v", err)
	}
	if ack.Op != 1 {
		t.Errorf("heartbeat op = %d, want 1", ack.Op)
	}

	resent := gs.nextFrame(t)
	if string(resent) != string(initial) {
		t.Errorf("heartbeat resent %s, want the current payload %s", resent, initial)
	}
}

func TestSession_RotationReplacesPayload(t *testing.T) {
	gs := newGatewayServer(t, 60_000, 0)
	rec := &recorder{}
	sess := newTestSession(t, gs.url(), rec, func(cfg *Config) {
		cfg.RotateAfter = 50 * time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	gs.nextFrame(t) // identify
	gs.nextFrame(t) // initial payload

	var rotated struct {
		Op int `json:"op"`
	}
	if err := json.Unmarshal(gs.nextFrame(t), &rotated); err != nil {
		t.Fatalf("parse rotated payload: %v", err)
	}
	if rotated.Op != 3 {
		t.Errorf("rotated frame op = %d, want 3", rotated.Op)
	}

	deadline := time.Now().Add(time.Second)
	for rec.count(events.PayloadUpdated) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := rec.count(events.PayloadUpdated); n < 2 {
		t.Errorf("payload-updated events = %d, want >= 2 after rotation", n)
	}
}

func TestSession_TerminatesAfterMaxRetries(t *testing.T) {
	rec := &recorder{}
	// Nothing listens here; every dial fails.
	sess := newTestSession(t, "ws://127.0.0.1:1", rec, func(cfg *Config) {
		cfg.MaxRetries = 2
		cfg.BaseBackoff = 5 * time.Millisecond
	})

	err := sess.Run(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Run error = %v, want ErrRetriesExhausted", err)
	}
	if got := sess.State(); got != StateTerminated {
		t.Errorf("State = %v, want Terminated", got)
	}
	if n := rec.count(events.SessionTerminated); n != 1 {
		t.Errorf("session-terminated events = %d, want exactly 1", n)
	}
	if n := rec.count(events.ConnectionFailed); n != 2 {
		t.Errorf("connection-failed events = %d, want 2 (one per backoff wait)", n)
	}

	if e, ok := rec.first(events.ConnectionFailed); ok {
		if e.Retry != 1 {
			t.Errorf("first failure retry = %d, want 1", e.Retry)
		}
		if e.TokenPrefix != testToken[:32] {
			t.Errorf("event token prefix = %q, want first 32 chars", e.TokenPrefix)
		}
	}
}

func TestSession_HandshakeTimeout(t *testing.T) {
	// Server accepts the socket but never sends a hello.
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	rec := &recorder{}
	sess := newTestSession(t, "ws"+strings.TrimPrefix(server.URL, "http"), rec, func(cfg *Config) {
		cfg.HandshakeTimeout = 50 * time.Millisecond
		cfg.MaxRetries = 0
	})

	err := sess.Run(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Run error = %v, want ErrRetriesExhausted", err)
	}
	if !strings.Contains(err.Error(), ErrHandshake.Error()) {
		t.Errorf("error %q does not mention the handshake failure", err)
	}
}

func TestSession_MissingHeartbeatIntervalIsHandshakeFailure(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		ws.WriteMessage(websocket.TextMessage, []byte(`{"op":10,"d":{}}`))
		time.Sleep(time.Second)
	}))
	defer server.Close()

	rec := &recorder{}
	sess := newTestSession(t, "ws"+strings.TrimPrefix(server.URL, "http"), rec, func(cfg *Config) {
		cfg.MaxRetries = 0
	})

	err := sess.Run(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("Run error = %v, want ErrRetriesExhausted", err)
	}
	if !strings.Contains(err.Error(), "heartbeat interval") {
		t.Errorf("error %q does not mention the missing interval", err)
	}
}

func TestSession_ReconnectsAfterDrop(t *testing.T) {
	// Server drops each connection after the identify frame.
	gs := newGatewayServer(t, 60_000, 1)
	rec := &recorder{}
	sess := newTestSession(t, gs.url(), rec, func(cfg *Config) {
		cfg.MaxRetries = 10
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for gs.connections() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if gs.connections() < 2 {
		t.Fatalf("connections = %d, want >= 2 (reconnect)", gs.connections())
	}
}

func TestSession_StructuralErrorNotRetried(t *testing.T) {
	gs := newGatewayServer(t, 60_000, 0)
	rec := &recorder{}

	cfg := DefaultConfig(gs.url())
	cfg.HandshakeTimeout = time.Second
	cfg.Gateway.StaleAfter = 0

	// A catalog whose only reachable branch has no data behind it.
	cat := &catalog.Catalog{
		StatusWeights: map[string]int{catalog.StatusSpotify: 1},
	}
	rng := rand.New(rand.NewSource(1))
	sess := New(testToken, cfg, presence.New(cat, rng), rng, rec, nil)

	err := sess.Run(context.Background())
	if !errors.Is(err, presence.ErrEmptyCatalog) {
		t.Fatalf("Run error = %v, want ErrEmptyCatalog", err)
	}
	if n := rec.count(events.ConnectionFailed); n != 0 {
		t.Errorf("connection-failed events = %d, want 0 (structural errors are not retried)", n)
	}
	if n := rec.count(events.SessionTerminated); n != 1 {
		t.Errorf("session-terminated events = %d, want 1", n)
	}
	if got := sess.State(); got != StateTerminated {
		t.Errorf("State = %v, want Terminated", got)
	}
}

func waitForState(t *testing.T, sess *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sess.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("State = %v, want %v", sess.State(), want)
}
