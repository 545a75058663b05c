// Package session maintains the persistent TCP session with the
// smart-home server.
//
// The Client combines three responsibilities that share one socket:
//
//   - Transport (client.go): the Disconnected → Connecting → Connected
//     state machine, a single background receive loop with newline
//     framing, a mutex-guarded write side, and bounded-timeout teardown.
//   - Protocol handling (handler.go): dispatch on the frame action.
//     CONNECTED triggers login, LOGIN_SUCCESS requests the device list,
//     DEVICES_LIST replaces the cache, DEVICE_UPDATED / DEVICE_CHANGED
//     upsert one record. Unknown actions and unparseable lines are
//     ignored, never fatal.
//   - Command dispatch (dispatcher.go): high-level intents become
//     fire-and-forget DEVICE_CONTROL frames.
//
// # Concurrency
//
// Socket reads happen on one dedicated goroutine, which is also the only
// writer of the device store. Sends may come from any goroutine and are
// serialised by a write mutex. An I/O error on either side transitions
// the client to Disconnected and stops the loop; reconnecting is the
// caller's decision (see the reconnect package for the shared policy).
//
// # Usage
//
//	store := device.NewStore()
//	client := session.New(session.Config{
//	    Host: "192.168.1.10", Port: 5000,
//	    Username: "admin", Password: secret,
//	}, store)
//	client.SetLogger(log)
//
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	client.TurnOn("light_1")
//	client.SetValue("speaker_1", 40)
package session
