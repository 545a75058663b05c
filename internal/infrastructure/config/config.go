package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Homelink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	REST      RESTConfig      `yaml:"rest"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains the upstream smart-home server TCP settings.
type ServerConfig struct {
	// Host is the hostname or IP of the smart-home server.
	Host string `yaml:"host"`

	// Port is the TCP port of the newline-delimited JSON endpoint.
	Port int `yaml:"port"`

	// ConnectTimeout is the maximum time to wait for the TCP connection
	// to be established (seconds). The upstream protocol has no implicit
	// timeout, so this must always be bounded.
	ConnectTimeout int `yaml:"connect_timeout"`

	// DisconnectTimeout is the maximum time to wait for the receive loop
	// to exit during shutdown (seconds).
	DisconnectTimeout int `yaml:"disconnect_timeout"`
}

// AuthConfig contains credentials for the upstream server.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RESTConfig contains settings for the server's REST API.
type RESTConfig struct {
	// BaseURL is the REST endpoint root, e.g. "http://192.168.1.10:5001".
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-request timeout (seconds).
	Timeout int `yaml:"timeout"`
}

// WebSocketConfig contains settings for the server's push channel.
type WebSocketConfig struct {
	// URL is the WebSocket endpoint, e.g. "ws://192.168.1.10:5002".
	URL string `yaml:"url"`

	// ReconnectAttempts is the number of reconnection attempts before
	// falling back to polling. 0 disables reconnection.
	ReconnectAttempts int `yaml:"reconnect_attempts"`

	// ReconnectDelay is the fixed delay between attempts (seconds).
	ReconnectDelay int `yaml:"reconnect_delay"`

	// PollInterval is the polling refresh interval used after
	// reconnection attempts are exhausted (seconds).
	PollInterval int `yaml:"poll_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains settings for the optional local republish bus.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains settings for optional state telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the local read-only status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMELINK_SECTION_KEY
// For example: HOMELINK_SERVER_HOST, HOMELINK_AUTH_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "localhost",
			Port:              5000,
			ConnectTimeout:    10,
			DisconnectTimeout: 5,
		},
		REST: RESTConfig{
			BaseURL: "http://localhost:5001",
			Timeout: 15,
		},
		WebSocket: WebSocketConfig{
			URL:               "ws://localhost:5002",
			ReconnectAttempts: 5,
			ReconnectDelay:    3,
			PollInterval:      30,
		},
		Database: DatabaseConfig{
			Path:        "./data/homelink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homelink",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMELINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Upstream server
	if v := os.Getenv("HOMELINK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HOMELINK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Credentials (never commit these to config.yaml)
	if v := os.Getenv("HOMELINK_AUTH_USERNAME"); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv("HOMELINK_AUTH_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}

	// REST / WebSocket mirrors
	if v := os.Getenv("HOMELINK_REST_BASE_URL"); v != "" {
		cfg.REST.BaseURL = v
	}
	if v := os.Getenv("HOMELINK_WEBSOCKET_URL"); v != "" {
		cfg.WebSocket.URL = v
	}

	// Database
	if v := os.Getenv("HOMELINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("HOMELINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMELINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMELINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HOMELINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Upstream server validation
	if c.Server.Host == "" {
		errs = append(errs, "server.host is required")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.ConnectTimeout < 1 {
		errs = append(errs, "server.connect_timeout must be at least 1 second")
	}

	// Auth validation
	if c.Auth.Username == "" {
		errs = append(errs, "auth.username is required (set HOMELINK_AUTH_USERNAME environment variable)")
	}

	// REST validation
	if c.REST.BaseURL != "" && !strings.HasPrefix(c.REST.BaseURL, "http://") && !strings.HasPrefix(c.REST.BaseURL, "https://") {
		errs = append(errs, "rest.base_url must start with http:// or https://")
	}

	// WebSocket validation
	if c.WebSocket.URL != "" && !strings.HasPrefix(c.WebSocket.URL, "ws://") && !strings.HasPrefix(c.WebSocket.URL, "wss://") {
		errs = append(errs, "websocket.url must start with ws:// or wss://")
	}
	if c.WebSocket.ReconnectAttempts < 0 {
		errs = append(errs, "websocket.reconnect_attempts must not be negative")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Local API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the upstream connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Server.ConnectTimeout) * time.Second
}

// GetDisconnectTimeout returns the shutdown join timeout as a Duration.
func (c *Config) GetDisconnectTimeout() time.Duration {
	return time.Duration(c.Server.DisconnectTimeout) * time.Second
}

// GetReconnectDelay returns the push mirror reconnect delay as a Duration.
func (c *Config) GetReconnectDelay() time.Duration {
	return time.Duration(c.WebSocket.ReconnectDelay) * time.Second
}

// GetPollInterval returns the polling fallback interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.WebSocket.PollInterval) * time.Second
}

// GetRESTTimeout returns the REST request timeout as a Duration.
func (c *Config) GetRESTTimeout() time.Duration {
	return time.Duration(c.REST.Timeout) * time.Second
}

// GetReadTimeout returns the local API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the local API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the local API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
