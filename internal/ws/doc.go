// Package ws keeps the device cache synchronised through the server's
// WebSocket push channel.
//
// A dropped connection triggers a fixed-delay reconnect policy; once the
// attempts are exhausted the mirror degrades to periodic REST polling
// for the rest of its lifetime. This mirrors the dashboard's behaviour
// so a headless gateway and a browser session stay equally current.
package ws
