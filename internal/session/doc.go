// Package session implements the per-identity connection lifecycle: dial,
// hello/identify handshake, the heartbeat and rotation cadence, and
// reconnection with capped exponential backoff ending in a terminal state
// once retries are exhausted.
//
// Each session runs on its own goroutine and owns its connection, retry
// counter and payload slot exclusively; sessions never block on one another.
package session
