// Package gateway provides the websocket transport boundary: one Conn per
// session, with serialized writes, a buffered inbound frame channel, and a
// staleness watchdog so silence on a half-open socket surfaces as an error
// instead of a hang.
package gateway
