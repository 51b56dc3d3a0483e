// Package orchestrator launches and supervises the set of sessions: one
// goroutine per identity token, a fixed stagger between starts to avoid a
// connection burst, and an aggregate progress snapshot. A session reaching
// its terminal state never affects the others.
package orchestrator

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloudnine-labs/presence/internal/catalog"
	"github.com/cloudnine-labs/presence/internal/events"
	"github.com/cloudnine-labs/presence/internal/presence"
	"github.com/cloudnine-labs/presence/internal/session"
)

// Config holds orchestrator settings.
type Config struct {
	Session      session.Config
	StartStagger time.Duration // Pause between consecutive session starts
}

// Stats is a read-only snapshot of startup progress.
type Stats struct {
	Started int
	Total   int
}

// Orchestrator owns the session set.
type Orchestrator struct {
	cfg    Config
	cat    *catalog.Catalog
	sink   events.Sink
	logger *slog.Logger

	// Plain errgroup, deliberately without a shared context: one session's
	// failure must not cancel the rest.
	group errgroup.Group

	mu       sync.RWMutex
	sessions []*session.Session
	started  int
	total    int
}

// New creates an Orchestrator over the shared catalog.
func New(cfg Config, cat *catalog.Catalog, sink events.Sink, logger *slog.Logger) *Orchestrator {
	if sink == nil {
		sink = events.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:    cfg,
		cat:    cat,
		sink:   sink,
		logger: logger,
	}
}

// Start launches one session per token, in list order, with the configured
// stagger between starts. It only schedules work; it never waits on session
// outcomes. Start returns once every session has been launched or ctx is
// cancelled.
func (o *Orchestrator) Start(ctx context.Context, tokens []string) {
	o.mu.Lock()
	o.total = len(tokens)
	o.mu.Unlock()

	for i, token := range tokens {
		if ctx.Err() != nil {
			return
		}

		// Per-session randomness source; *rand.Rand is not safe to share.
		rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(i)))
		synth := presence.New(o.cat, rng)
		sess := session.New(token, o.cfg.Session, synth, rng, o.sink, o.logger)

		o.group.Go(func() error {
			return sess.Run(ctx)
		})

		o.mu.Lock()
		o.sessions = append(o.sessions, sess)
		o.started++
		started, total := o.started, o.total
		o.mu.Unlock()

		o.sink.Emit(events.Event{
			Kind:        events.SessionStarted,
			SessionID:   sess.ID(),
			TokenPrefix: events.TokenPrefix(token),
			At:          time.Now(),
		})
		o.sink.Emit(events.Event{
			Kind:    events.Progress,
			Started: started,
			Total:   total,
			At:      time.Now(),
		})

		if o.cfg.StartStagger > 0 && i < len(tokens)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.cfg.StartStagger):
			}
		}
	}
}

// Wait blocks until every session has returned and reports the first
// session-level failure, if any. Sessions only return on context
// cancellation or after exhausting their own retries.
func (o *Orchestrator) Wait() error {
	return o.group.Wait()
}

// Stats returns the current startup progress snapshot.
func (o *Orchestrator) Stats() Stats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Stats{Started: o.started, Total: o.total}
}

// States returns the lifecycle state of every launched session, in start
// order.
func (o *Orchestrator) States() []session.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	states := make([]session.State, len(o.sessions))
	for i, s := range o.sessions {
		states[i] = s.State()
	}
	return states
}
