// Package rest mirrors the smart-home server's HTTP API: login, device
// and room queries, device control and energy statistics.
//
// After Login the client attaches the bearer token to every request and
// optionally persists it through a TokenStore, so a restarted gateway
// resumes its session without re-authenticating until the token expires.
// Non-2xx responses surface the server's own error message when the
// body carries one.
package rest
