// hubdriver serves the remote-control hub integration protocol.
//
// It loads the driver configuration and metadata, exposes the entity
// catalogue over WebSocket, advertises itself over mDNS and bridges entity
// commands and state to devices through MQTT. Setup values and entity
// snapshots are kept in SQLite; attribute history goes to InfluxDB.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/hubdriver-core/internal/api"
	"github.com/nerrad567/hubdriver-core/internal/discovery"
	"github.com/nerrad567/hubdriver-core/internal/driver"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/config"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/database"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/logging"
	"github.com/nerrad567/hubdriver-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/hubdriver-core/internal/setup"
	"github.com/nerrad567/hubdriver-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting hub driver",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	metadata, err := config.LoadMetadata(cfg.Driver.MetadataFile)
	if err != nil {
		return fmt.Errorf("loading driver metadata: %w", err)
	}
	metadata.ApplyTo(cfg)

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"driver_id", metadata.DriverID,
		"level", cfg.Logging.Level,
	)

	backends := make(map[string]api.HealthChecker)

	// Database (optional)
	var store *driver.SQLiteStore
	if cfg.Database.Enabled {
		db, openErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if openErr != nil {
			return fmt.Errorf("opening database: %w", openErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
			return fmt.Errorf("running migrations: %w", migrateErr)
		}
		store = driver.NewSQLiteStore(db.DB)
		backends["database"] = db
		log.Info("database ready", "path", cfg.Database.Path)
	} else {
		log.Info("database disabled, setup values are not persisted")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		cfg.MQTT.Broker.ClientID = mqttClientID(cfg.MQTT.Broker.ClientID)
		mqttClient, err = connectMQTT(ctx, cfg.MQTT, log)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		backends["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled, commands are answered locally")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		backends["influxdb"] = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Protocol engine
	deps := api.Deps{
		Server:         cfg.Server,
		WS:             cfg.WebSocket,
		Logger:         log,
		Metadata:       metadata,
		Version:        version,
		RequestTimeout: cfg.GetRequestTimeout(),
		PacingDelay:    cfg.GetPacingDelay(),
		Backends:       backends,
	}
	var setupStore driver.SetupStore = driver.NewMemoryStore()
	if store != nil {
		setupStore = store
	}
	wizard := driver.NewWizard(setupStore, cfg.Setup.Fields)
	wizard.SetLogger(log.Component("wizard"))
	deps.SetupHandler = setup.Handler(wizard.Handle)
	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating protocol engine: %w", err)
	}
	defer func() {
		log.Info("stopping protocol engine")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping protocol engine", "error", closeErr)
		}
	}()

	drv, err := newDriver(cfg, srv, mqttClient, influxClient, store, log)
	if err != nil {
		return err
	}
	if err := drv.Start(ctx); err != nil {
		return fmt.Errorf("starting driver: %w", err)
	}
	defer drv.Close()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting protocol engine: %w", err)
	}

	// mDNS advertisement (optional)
	if cfg.Discovery.Enabled {
		advertiser := discovery.NewAdvertiser(discovery.Config{
			Service:    cfg.Discovery.Service,
			Domain:     cfg.Discovery.Domain,
			Interfaces: cfg.Discovery.Interfaces,
		})
		advertiser.SetLogger(log.Component("discovery"))
		if startErr := advertiser.Start(discoveryInfo(cfg, metadata)); startErr != nil {
			// The hub can still be pointed at the driver manually.
			log.Warn("mDNS advertisement failed", "error", startErr)
		} else {
			defer advertiser.Stop()
		}
	} else {
		log.Info("mDNS advertisement disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("hub driver stopped")
	return nil
}

// newDriver wires the optional backends into the driver. Disabled
// backends must stay nil interfaces rather than typed nil pointers.
func newDriver(cfg *config.Config, srv *api.Server, mqttClient *mqtt.Client, influxClient *influxdb.Client, store *driver.SQLiteStore, log *logging.Logger) (*driver.Driver, error) {
	deps := driver.Deps{
		Engine:   srv,
		Entities: cfg.Entities,
		Logger:   log.Component("driver"),
	}
	if mqttClient != nil {
		deps.Broker = mqttClient
	}
	if influxClient != nil {
		deps.Telemetry = influxClient
	}
	if store != nil {
		deps.Snapshots = store
	}

	d, err := driver.New(deps)
	if err != nil {
		return nil, fmt.Errorf("creating driver: %w", err)
	}
	return d, nil
}

// getConfigPath returns the configuration file path.
// Uses HUBDRIVER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HUBDRIVER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mqttClientID makes the client id unique per process so two driver
// instances on one broker do not disconnect each other.
func mqttClientID(base string) string {
	if base == "" {
		base = mqtt.DefaultTopicPrefix
	}
	return base + "-" + uuid.NewString()[:8]
}

// connectMQTT retries the initial broker connection with exponential
// backoff. Zero MaxAttempts retries until ctx is cancelled.
func connectMQTT(ctx context.Context, cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	delay := time.Duration(cfg.Reconnect.InitialDelay) * time.Second
	if delay <= 0 {
		delay = time.Second
	}
	maxDelay := time.Duration(cfg.Reconnect.MaxDelay) * time.Second
	if maxDelay < delay {
		maxDelay = delay
	}

	for attempt := 1; ; attempt++ {
		client, err := mqtt.Connect(cfg)
		if err == nil {
			return client, nil
		}
		if cfg.Reconnect.MaxAttempts > 0 && attempt >= cfg.Reconnect.MaxAttempts {
			return nil, err
		}
		log.Warn("MQTT connection failed, retrying", "attempt", attempt, "retry_in", delay, "error", err)

		select {
		case <-ctx.Done():
			return nil, errors.Join(err, ctx.Err())
		case <-time.After(delay):
		}
		delay = min(delay*2, maxDelay)
	}
}

// discoveryInfo builds the mDNS announcement from the driver metadata.
func discoveryInfo(cfg *config.Config, md *config.Metadata) discovery.Info {
	info := discovery.Info{
		Instance: cfg.Discovery.InstanceID,
		Port:     cfg.Server.Port,
		Name:     md.DisplayName(),
		Version:  md.Version,
		WSPath:   cfg.WebSocket.Path,
	}
	if dev, ok := md.Document["developer"].(map[string]any); ok {
		if name, ok := dev["name"].(string); ok {
			info.Developer = name
		}
	}
	return info
}
