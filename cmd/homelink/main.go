// Homelink - smart home gateway daemon
//
// Homelink maintains a persistent TCP session with the upstream smart
// home server, mirrors device state pushed over WebSocket, and exposes
// the resulting cache on a local status API. Optionally it republishes
// state onto an MQTT bus and records state transitions in InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/homelink/internal/activity"
	"github.com/nerrad567/homelink/internal/api"
	"github.com/nerrad567/homelink/internal/device"
	"github.com/nerrad567/homelink/internal/infrastructure/config"
	"github.com/nerrad567/homelink/internal/infrastructure/database"
	"github.com/nerrad567/homelink/internal/infrastructure/logging"
	"github.com/nerrad567/homelink/internal/infrastructure/mqtt"
	"github.com/nerrad567/homelink/internal/rest"
	"github.com/nerrad567/homelink/internal/session"
	"github.com/nerrad567/homelink/internal/telemetry"
	"github.com/nerrad567/homelink/internal/ws"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Homelink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Initialise device cache
	store := device.NewStore()
	store.SetLogger(log)
	defer store.Close()

	// Activity log, fed by the session recorder
	activityRepo := activity.NewSQLiteRepository(db.DB)
	recorder := activity.NewRecorder(activityRepo, log)

	// Upstream TCP session
	client := session.New(session.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		Username:          cfg.Auth.Username,
		Password:          cfg.Auth.Password,
		ConnectTimeout:    cfg.GetConnectTimeout(),
		DisconnectTimeout: cfg.GetDisconnectTimeout(),
	}, store)
	client.SetLogger(log)
	client.SetRecorder(recorder)
	client.OnStateChange(func(s session.State) {
		log.Info("upstream session state changed", "state", string(s))
	})

	if connectErr := client.Connect(ctx); connectErr != nil {
		return fmt.Errorf("connecting to server: %w", connectErr)
	}
	defer func() {
		log.Info("disconnecting from server")
		if closeErr := client.Disconnect(); closeErr != nil {
			log.Error("error disconnecting session", "error", closeErr)
		}
	}()
	log.Info("server connected",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// REST client for the server's HTTP API; its token survives restarts
	// in the database so a valid session avoids a fresh login.
	restClient := rest.New(rest.Config{
		BaseURL: cfg.REST.BaseURL,
		Timeout: cfg.GetRESTTimeout(),
	}, rest.NewSQLiteTokenStore(db.DB))

	restored, err := restClient.RestoreSession(ctx)
	if err != nil {
		log.Warn("REST session restore failed", "error", err)
	}
	if restored {
		log.Info("REST session restored", "username", restClient.Username())
	} else if cfg.Auth.Username != "" {
		if _, loginErr := restClient.Login(ctx, cfg.Auth.Username, cfg.Auth.Password); loginErr != nil {
			log.Warn("REST login failed, polling fallback unavailable", "error", loginErr)
		} else {
			log.Info("REST login successful", "username", cfg.Auth.Username)
		}
	}

	// WebSocket push mirror with REST polling fallback
	if cfg.WebSocket.URL != "" {
		mirror := ws.New(ws.Config{
			URL:               cfg.WebSocket.URL,
			ReconnectAttempts: cfg.WebSocket.ReconnectAttempts,
			ReconnectDelay:    cfg.GetReconnectDelay(),
			PollInterval:      cfg.GetPollInterval(),
		}, store, &restPollerAdapter{client: restClient})
		mirror.SetLogger(log)

		go func() {
			if runErr := mirror.Run(ctx); runErr != nil {
				log.Error("push mirror stopped", "error", runErr)
			}
		}()
		log.Info("push mirror started", "url", cfg.WebSocket.URL)
	} else {
		log.Info("push mirror disabled")
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		// Bridge: cache events out, bus commands in
		bridge := mqtt.NewBridge(mqttClient, log)
		store.OnEvent(bridge.HandleEvent)
		// #nosec G115 -- QoS validated to 0..2 at config load
		if bindErr := bridge.BindCommands(mqttClient, byte(cfg.MQTT.QoS), client); bindErr != nil {
			return fmt.Errorf("binding MQTT commands: %w", bindErr)
		}
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var telClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		telClient, err = telemetry.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := telClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		telClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		store.OnEvent(telClient.HandleEvent)
		client.OnStateChange(func(s session.State) {
			telClient.WriteConnectionState(s == session.StateConnected)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Local status API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Store:    store,
			Activity: activityRepo,
			Session:  client,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating status API: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting status API: %w", startErr)
		}
		defer func() {
			log.Info("stopping status API")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing status API", "error", closeErr)
			}
		}()
		log.Info("status API started",
			"host", cfg.API.Host,
			"port", cfg.API.Port,
		)
	} else {
		log.Info("status API disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, telClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Status API (if enabled)
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Upstream session
	// 5. Device store
	// 6. Database

	log.Info("Homelink stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMELINK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMELINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - telClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, telClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if telClient != nil {
		if err := telClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Upstream session health is reflected in its state, visible on
	// the status API; an unreachable server is not fatal here because
	// the push mirror and polling fallback keep the cache serviceable.

	return nil
}

// restPollerAdapter adapts the REST client to the push mirror's Poller
// interface. The mirror only needs a full unfiltered snapshot.
type restPollerAdapter struct {
	client *rest.Client
}

// Fetch implements ws.Poller.
func (a *restPollerAdapter) Fetch(ctx context.Context) ([]device.Record, error) {
	return a.client.Devices(ctx, "")
}
