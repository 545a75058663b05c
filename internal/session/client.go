package session

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/protocol"
)

// Default timeouts for the upstream TCP connection.
const (
	// defaultConnectTimeout bounds the dial. The upstream protocol never
	// specified one; an indefinite hang on a dead host is not acceptable.
	defaultConnectTimeout = 10 * time.Second

	// defaultWriteTimeout is the per-frame write deadline.
	defaultWriteTimeout = 5 * time.Second

	// defaultDisconnectTimeout bounds the receive-loop join on shutdown.
	// If the join times out the socket is force-closed anyway.
	defaultDisconnectTimeout = 5 * time.Second

	// maxLineSize is the largest accepted wire line. DEVICES_LIST frames
	// embed the whole device array, so this is generous.
	maxLineSize = 1 << 20 // 1MB
)

// State is the connection state of the client.
type State string

// Connection states. Connected is only reachable from Connecting;
// Disconnected is reachable from every state via I/O error or Close.
const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder receives session activity for the local activity log.
// Implementations must be safe for concurrent use.
type Recorder interface {
	RecordConnection(state string, detail string)
	RecordLogin(success bool, username string)
	RecordCommand(deviceID, command, value string)
}

// noopRecorder is a recorder that does nothing.
type noopRecorder struct{}

func (noopRecorder) RecordConnection(string, string) {}
func (noopRecorder) RecordLogin(bool, string)        {}
func (noopRecorder) RecordCommand(string, string, string) {
}

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Config holds the upstream server connection settings.
type Config struct {
	// Host and Port locate the server's TCP endpoint.
	Host string
	Port int

	// Username and Password are submitted when the server announces
	// CONNECTED.
	Username string
	Password string

	// ConnectTimeout bounds the dial. Default: 10s.
	ConnectTimeout time.Duration

	// DisconnectTimeout bounds the receive-loop join on Disconnect.
	// Default: 5s.
	DisconnectTimeout time.Duration
}

// Client maintains the persistent TCP session with the smart-home server.
//
// One Client owns one socket, one background receive loop, and the
// protocol dispatch that feeds the device store. Construct one per
// process and pass it explicitly; there is no package-level instance.
//
// Thread Safety:
//   - Send and the command methods are safe from any goroutine; the
//     write side of the socket is guarded by a mutex.
//   - The device store is only written from the receive loop, giving the
//     cache its single-writer discipline.
//
// Failure semantics:
//   - Any read or write error transitions the client to Disconnected and
//     stops the receive loop. There is no automatic reconnect at this
//     layer; the caller decides when to call Connect again.
type Client struct {
	cfg   Config
	store *device.Store

	conn   net.Conn
	connMu sync.RWMutex

	state   State
	stateMu sync.RWMutex

	authenticated bool
	authMu        sync.RWMutex

	// writeMu serialises frame writes; sends are issued from arbitrary
	// goroutines while only the receive loop reads.
	writeMu sync.Mutex

	stateHandlers []func(State)
	handlersMu    sync.RWMutex

	done *closeOnce
	wg   sync.WaitGroup

	logger   Logger
	recorder Recorder
}

// New creates a client for the given server. The store receives every
// device fact the session learns; it must outlive the client.
func New(cfg Config, store *device.Store) *Client {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.DisconnectTimeout == 0 {
		cfg.DisconnectTimeout = defaultDisconnectTimeout
	}

	return &Client{
		cfg:      cfg,
		store:    store,
		state:    StateDisconnected,
		logger:   noopLogger{},
		recorder: noopRecorder{},
	}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// SetRecorder sets the activity recorder for the client.
func (c *Client) SetRecorder(recorder Recorder) {
	c.recorder = recorder
}

// Connect opens the TCP socket and starts the receive loop.
//
// It is a no-op when already connected. The dial respects both the
// configured ConnectTimeout and the caller's context.
//
// Parameters:
//   - ctx: Cancels the dial (not the established session)
//
// Returns:
//   - error: If the dial fails or times out
func (c *Client) Connect(ctx context.Context) error {
	c.stateMu.Lock()
	if c.state != StateDisconnected {
		c.stateMu.Unlock()
		return nil
	}
	c.state = StateConnecting
	c.stateMu.Unlock()
	c.notifyState(StateConnecting)

	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		c.setState(StateDisconnected)
		c.recorder.RecordConnection(string(StateDisconnected), err.Error())
		return fmt.Errorf("%w: dial %s: %w", ErrConnectFailed, addr, err)
	}

	done := newCloseOnce()
	c.connMu.Lock()
	c.conn = conn
	c.done = done
	c.connMu.Unlock()

	c.setState(StateConnected)
	c.recorder.RecordConnection(string(StateConnected), addr)
	c.logger.Info("connected to server", "addr", addr)

	c.wg.Add(1)
	go c.receiveLoop(conn, done)

	return nil
}

// Disconnect sends a best-effort DISCONNECT notice, tears down the
// socket, and joins the receive loop with a bounded timeout. The socket
// is force-closed even if the join times out; the connection never leaks.
func (c *Client) Disconnect() error {
	c.stateMu.Lock()
	if c.state != StateConnected {
		c.stateMu.Unlock()
		return nil
	}
	c.stateMu.Unlock()

	// Best-effort notice; the server may already be gone.
	c.Send(protocol.Frame{Action: protocol.ActionDisconnect})

	c.connMu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.connMu.Unlock()

	if done != nil {
		done.Close()
	}
	if conn != nil {
		conn.Close()
	}

	// Join the receive loop with a bounded wait.
	joined := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
	case <-time.After(c.cfg.DisconnectTimeout):
		c.logger.Warn("receive loop join timed out", "timeout", c.cfg.DisconnectTimeout)
	}

	c.setAuthenticated(false)
	c.setState(StateDisconnected)
	c.recorder.RecordConnection(string(StateDisconnected), "client disconnect")
	c.logger.Info("disconnected from server")
	return nil
}

// Send writes one frame to the socket.
//
// It is safe from any goroutine. When the client is not connected the
// frame is dropped with a log entry; Send never returns an error to the
// caller, matching the fire-and-forget contract of the protocol.
func (c *Client) Send(frame protocol.Frame) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		c.logger.Warn("send while disconnected, frame dropped", "action", frame.Action)
		return
	}

	data, err := protocol.Encode(frame)
	if err != nil {
		c.logger.Error("frame encode failed", "action", frame.Action, "error", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	//nolint:errcheck // Best-effort deadline; write error handled below
	conn.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	if _, err := conn.Write(data); err != nil {
		c.logger.Warn("frame write failed", "action", frame.Action, "error", err)
		c.teardown(err)
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Authenticated reports whether the server accepted the login.
func (c *Client) Authenticated() bool {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.authenticated
}

// OnStateChange registers a handler invoked on every connection state
// transition. Handlers run synchronously on the transitioning goroutine
// and must not block.
func (c *Client) OnStateChange(handler func(State)) {
	c.handlersMu.Lock()
	c.stateHandlers = append(c.stateHandlers, handler)
	c.handlersMu.Unlock()
}

// receiveLoop reads newline-delimited frames until the connection fails
// or shutdown is requested. Partial trailing data is retained by the
// scanner until the rest of the line arrives.
func (c *Client) receiveLoop(conn net.Conn, done *closeOnce) {
	defer c.wg.Done()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-done.Done():
			return
		default:
		}
		c.handleLine(scanner.Bytes())
	}

	// Read error or EOF: if this was not a requested shutdown, the
	// connection dropped under us.
	select {
	case <-done.Done():
		return
	default:
	}

	err := scanner.Err()
	if err != nil {
		c.logger.Warn("connection read failed", "error", err)
	} else {
		c.logger.Info("server closed connection")
	}
	c.teardown(err)
}

// teardown transitions to Disconnected after an I/O failure. Safe to
// call from both the receive loop and Send; only the first caller for a
// given connection does the work.
func (c *Client) teardown(err error) {
	c.stateMu.Lock()
	if c.state != StateConnected {
		c.stateMu.Unlock()
		return
	}
	c.state = StateDisconnected
	c.stateMu.Unlock()

	c.connMu.Lock()
	conn := c.conn
	done := c.done
	c.conn = nil
	c.connMu.Unlock()

	if done != nil {
		done.Close()
	}
	if conn != nil {
		conn.Close()
	}

	c.setAuthenticated(false)

	detail := "connection lost"
	if err != nil {
		detail = err.Error()
	}
	c.recorder.RecordConnection(string(StateDisconnected), detail)
	c.notifyState(StateDisconnected)
}

// setState records a state transition and notifies subscribers.
func (c *Client) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
	c.notifyState(s)
}

// notifyState fires the state change handlers.
func (c *Client) notifyState(s State) {
	c.handlersMu.RLock()
	handlers := c.stateHandlers
	c.handlersMu.RUnlock()

	for _, h := range handlers {
		h(s)
	}
}

// setAuthenticated records the login state.
func (c *Client) setAuthenticated(v bool) {
	c.authMu.Lock()
	c.authenticated = v
	c.authMu.Unlock()
}
