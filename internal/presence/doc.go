// Package presence synthesizes the presence-update payloads a session sends
// to the gateway: a weighted status kind (game, listening, editor), optional
// custom status, randomized timestamps, and the gateway's nonce encoding.
//
// Randomness and the clock are injected so payloads are reproducible under
// test; the synthesizer never mutates session state.
package presence
