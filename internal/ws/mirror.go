package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/protocol"
	"github.com/nerrad567/homelink/internal/reconnect"
)

const (
	// dialTimeout bounds each WebSocket dial attempt.
	dialTimeout = 10 * time.Second

	// pingInterval is how often the mirror sends a keepalive ping frame.
	pingInterval = 30 * time.Second

	// writeTimeout bounds each outbound message write.
	writeTimeout = 5 * time.Second

	// maxMessageSize caps inbound push messages.
	maxMessageSize = 1 << 20

	// defaultPollInterval is used when the configuration leaves the
	// polling cadence unset.
	defaultPollInterval = 30 * time.Second
)

// Config holds the push mirror configuration.
type Config struct {
	// URL is the WebSocket endpoint, e.g. "ws://192.168.1.10:5002".
	URL string

	// ReconnectAttempts caps consecutive failed dials before the mirror
	// degrades to polling.
	ReconnectAttempts int

	// ReconnectDelay is the fixed pause between dial attempts.
	ReconnectDelay time.Duration

	// PollInterval is the fetch cadence once degraded to polling.
	PollInterval time.Duration
}

// Poller supplies a full device snapshot when push delivery is
// unavailable. The REST client satisfies this.
type Poller interface {
	Fetch(ctx context.Context) ([]device.Record, error)
}

// Logger is the minimal logging interface the mirror needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// pushMessage is one inbound push frame. The device payload reuses the
// wire form shared with the TCP protocol, escaped-string embedding
// included.
type pushMessage struct {
	Action   string          `json:"action"`
	DeviceID string          `json:"deviceId,omitempty"`
	Device   json.RawMessage `json:"device,omitempty"`
	Source   string          `json:"source,omitempty"`
}

// Mirror keeps the device cache current through WebSocket push,
// degrading to periodic polling when the endpoint stays unreachable.
//
// Thread Safety: Run must be called from a single goroutine; the store
// it writes to handles its own synchronisation.
type Mirror struct {
	cfg    Config
	store  *device.Store
	poller Poller
	policy reconnect.Policy
	logger Logger
}

// New creates a push mirror. poller may be nil, in which case exhausted
// reconnects end Run instead of degrading to polling.
func New(cfg Config, store *device.Store, poller Poller) *Mirror {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Mirror{
		cfg:    cfg,
		store:  store,
		poller: poller,
		policy: reconnect.Policy{
			MaxAttempts: cfg.ReconnectAttempts,
			Delay:       cfg.ReconnectDelay,
		},
		logger: noopLogger{},
	}
}

// SetLogger replaces the no-op logger.
func (m *Mirror) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Run connects and serves push updates until ctx is cancelled. Each
// dropped connection triggers the reconnect policy; when attempts are
// exhausted the mirror switches to polling permanently and Run keeps
// blocking until cancellation.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		var conn *websocket.Conn
		err := m.policy.Run(ctx, func(attempt int) error {
			c, dialErr := m.dial(ctx)
			if dialErr != nil {
				m.logger.Warn("websocket dial failed",
					"url", m.cfg.URL,
					"attempt", attempt,
					"error", dialErr,
				)
				return dialErr
			}
			conn = c
			return nil
		}, func() {
			m.logger.Warn("websocket reconnect exhausted, degrading to polling", "url", m.cfg.URL)
		})

		switch {
		case err == nil:
			m.logger.Info("websocket connected", "url", m.cfg.URL)
			m.serve(ctx, conn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Info("websocket connection lost", "url", m.cfg.URL)
		case errors.Is(err, reconnect.ErrExhausted):
			if m.poller == nil {
				return err
			}
			m.pollLoop(ctx)
			return ctx.Err()
		default:
			// Context cancelled between attempts.
			return err
		}
	}
}

func (m *Mirror) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, m.cfg.URL, nil)
	if resp != nil {
		resp.Body.Close() //nolint:errcheck // Handshake response body is never needed
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// serve reads push messages until the connection drops or ctx is
// cancelled. A registration ping is sent immediately so the server
// starts pushing, then periodically as a keepalive.
func (m *Mirror) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)

	// Closing the connection on cancellation unblocks ReadMessage.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if err := m.writePing(conn); err != nil {
		m.logger.Warn("websocket ping failed", "error", err)
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := m.writePing(conn); err != nil {
					return
				}
			case <-stop:
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		m.handleMessage(data)
	}
}

func (m *Mirror) writePing(conn *websocket.Conn) error {
	//nolint:errcheck // Best-effort deadline; write error caught below
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(pushMessage{Action: protocol.ActionPing})
}

// handleMessage applies one push frame to the cache. Malformed messages
// are dropped; push delivery must never kill the connection.
func (m *Mirror) handleMessage(data []byte) {
	var msg pushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		m.logger.Debug("dropping malformed push message", "error", err)
		return
	}

	switch msg.Action {
	case protocol.ActionDeviceChanged, protocol.ActionDeviceUpdated:
		wire, err := protocol.DecodeDevice(msg.Device)
		if err != nil {
			m.logger.Debug("dropping push update with bad device payload",
				"device_id", msg.DeviceID,
				"error", err,
			)
			return
		}
		record := device.FromWire(wire)
		m.store.Upsert(record)
		m.logger.Debug("push update applied", "device_id", record.ID, "source", msg.Source)
	case protocol.ActionPong, protocol.ActionRegistered:
		m.logger.Debug("push acknowledgement", "action", msg.Action)
	default:
		// Unknown actions are ignored for forward compatibility.
	}
}

// pollLoop fetches full snapshots at the configured cadence until ctx
// is cancelled. The first fetch happens immediately.
func (m *Mirror) pollLoop(ctx context.Context) {
	m.pollOnce(ctx)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

func (m *Mirror) pollOnce(ctx context.Context) {
	records, err := m.poller.Fetch(ctx)
	if err != nil {
		m.logger.Warn("poll fetch failed", "error", err)
		return
	}
	m.store.ReplaceAll(records)
	m.logger.Debug("poll snapshot applied", "devices", len(records))
}
