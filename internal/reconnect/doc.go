// Package reconnect provides the shared reconnection policy for
// Homelink's transports.
//
// The policy is deliberately simple: a bounded number of attempts with a
// fixed delay, then a one-shot fallback. This matches the upstream
// dashboard behaviour (5 attempts, fixed delay, then degrade to polling)
// and gives the TCP session and the WebSocket mirror one tested
// implementation instead of two divergent ones.
package reconnect
