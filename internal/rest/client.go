package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/protocol"
)

// defaultTimeout bounds each request when the configuration leaves the
// timeout unset.
const defaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response body is read when
// extracting the server's message.
const maxErrorBody = 4 << 10

// Config holds the REST client configuration.
type Config struct {
	// BaseURL is the server root, e.g. "http://192.168.1.10:5001".
	BaseURL string

	// Timeout bounds each request including body read.
	Timeout time.Duration
}

// LoginResult is the response to a successful login.
type LoginResult struct {
	Status   string `json:"status"`
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ControlResult is the server's acknowledgement of a control request.
// NewStatus and NewValue are present only when the command changed them.
type ControlResult struct {
	Status    string `json:"status"`
	NewStatus string `json:"newStatus,omitempty"`
	NewValue  string `json:"newValue,omitempty"`
}

// Energy query kinds accepted by the energy endpoint.
const (
	EnergySummary = "summary"
	EnergyByHour  = "byHour"
	EnergyByType  = "byType"
	EnergyByDay   = "byDay"
	EnergyCurrent = "current"
	EnergyLogs    = "logs"
)

// Client mirrors the device API over HTTP. It carries a bearer token
// after login and attaches it to every subsequent request.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	tokens TokenStore

	mu       sync.RWMutex
	token    string
	username string
}

// TokenStore persists the session token across process restarts.
// Implementations must tolerate concurrent calls.
type TokenStore interface {
	Save(ctx context.Context, baseURL, username, token string) error
	Load(ctx context.Context, baseURL string) (username, token string, err error)
	Delete(ctx context.Context, baseURL string) error
}

// New creates a REST client. tokens may be nil, in which case the
// session token lives only in memory.
func New(cfg Config, tokens TokenStore) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
	}
}

// RestoreSession loads a persisted token for this base URL, discarding
// it when expired. It reports whether a usable token was restored.
func (c *Client) RestoreSession(ctx context.Context) (bool, error) {
	if c.tokens == nil {
		return false, nil
	}

	username, token, err := c.tokens.Load(ctx, c.cfg.BaseURL)
	if err != nil {
		return false, fmt.Errorf("loading persisted token: %w", err)
	}
	if token == "" {
		return false, nil
	}
	if expired, _ := TokenExpired(token, time.Now()); expired {
		_ = c.tokens.Delete(ctx, c.cfg.BaseURL) //nolint:errcheck // Best effort cleanup of a dead token
		return false, nil
	}

	c.mu.Lock()
	c.token = token
	c.username = username
	c.mu.Unlock()
	return true, nil
}

// Login authenticates and stores the returned bearer token for
// subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/api/login", map[string]string{
		"username": username,
		"password": password,
	}, &result)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.token = result.Token
	c.username = result.Username
	c.mu.Unlock()

	if c.tokens != nil && result.Token != "" {
		if err := c.tokens.Save(ctx, c.cfg.BaseURL, result.Username, result.Token); err != nil {
			return nil, fmt.Errorf("persisting token: %w", err)
		}
	}
	return &result, nil
}

// Logout drops the in-memory token and removes the persisted copy.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.token = ""
	c.username = ""
	c.mu.Unlock()

	if c.tokens == nil {
		return nil
	}
	if err := c.tokens.Delete(ctx, c.cfg.BaseURL); err != nil {
		return fmt.Errorf("removing persisted token: %w", err)
	}
	return nil
}

// Username returns the authenticated username, empty when logged out.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// Devices fetches the device list. typeFilter narrows by device type
// when non-empty (e.g. "camera").
func (c *Client) Devices(ctx context.Context, typeFilter string) ([]device.Record, error) {
	path := "/api/devices"
	if typeFilter != "" {
		path += "?type=" + url.QueryEscape(typeFilter)
	}

	var wire []protocol.WireDevice
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, err
	}
	return device.FromWireList(wire), nil
}

// Rooms fetches the room names known to the server.
func (c *Client) Rooms(ctx context.Context) ([]string, error) {
	var payload struct {
		Rooms []string `json:"rooms"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Rooms, nil
}

// Control sends a device command. value is optional and command-specific.
func (c *Client) Control(ctx context.Context, deviceID, command, value string) (*ControlResult, error) {
	body := map[string]string{
		"deviceId": deviceID,
		"command":  command,
	}
	if value != "" {
		body["value"] = value
	}

	var result ControlResult
	if err := c.do(ctx, http.MethodPost, "/api/control", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Energy fetches energy statistics. The response shape depends on kind,
// so the raw JSON is returned for the caller to interpret.
func (c *Client) Energy(ctx context.Context, kind string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodGet, "/api/energy?type="+url.QueryEscape(kind), nil, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// do performs one request, attaching the bearer token when present and
// converting non-2xx responses into errors carrying the server message.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.responseError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// responseError extracts the server's error message when the body
// carries one, falling back to the HTTP status line.
func (c *Client) responseError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // Partial body still useful

	message := resp.Status
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &payload) == nil {
		switch {
		case payload.Error != "":
			message = payload.Error
		case payload.Message != "":
			message = payload.Message
		}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(message)}
}
