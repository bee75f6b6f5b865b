package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/api"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/config"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/database"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/influxdb"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/logging"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/mqtt"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/journal"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/junction"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/mqttbridge"
	"github.com/PradhanJi-16/nexus-grid-visor/migrations"
)

// journalBuffer is the recorder queue depth.
const journalBuffer = 1024

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configFlag: the --config flag value, may be empty
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configFlag string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := logging.Default()
	log.Info("starting Nexus Grid",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, path, err := loadConfig(configFlag)
	if err != nil {
		return err
	}
	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path, "site", cfg.Site.ID)

	// Database: junction catalogue and event journal.
	db, err := database.Open(ctx, database.Config{
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
	applied, err := db.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path, "migrations_applied", applied)

	table, _, err := junction.Resolve(ctx, cfg.Control.JunctionsFile, junction.NewSQLiteRepository(db), log)
	if err != nil {
		return fmt.Errorf("loading junction catalogue: %w", err)
	}

	engine, err := arbitration.NewEngine(table.PhaseTable(), engineConfig(cfg.Control))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	engine.SetLogger(log.Component("arbitration"))

	dispatcher := command.NewDispatcher(engine, table)
	dispatcher.SetLogger(log.Component("command"))

	driver := arbitration.NewDriver(engine, cfg.Control.TickInterval)
	driver.SetLogger(log.Component("driver"))

	// Journal: every event lands in control_events via a queue.
	journalRepo := journal.NewSQLiteRepository(db.DB)
	recorder := journal.NewRecorder(journalRepo, journalBuffer)
	recorder.SetLogger(log.Component("journal"))
	defer recorder.Close()
	engine.AddSink(recorder)

	// MQTT: alert collaborator ingress and event egress.
	var (
		mqttClient *mqtt.Client
		bridge     *mqttbridge.Bridge
	)
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
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
		mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })

		bridge = mqttbridge.New(mqttClient, dispatcher, engine)
		bridge.SetLogger(log.Component("mqttbridge"))
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			cancel()
			bridge.Wait()
		}()
		engine.AddSink(bridge)
		driver.Observe(bridge.ObserveTick)
		log.Info("MQTT bridge started",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB: junction state and event telemetry (optional).
	var influxClient *influxdb.Client
	influxClient, err = influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		engine.AddSink(influxClient)
		driver.Observe(influxClient.ObserveTick)
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// HTTP and WebSocket API.
	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Security:  cfg.Security,
			Logger:    log.Component("api"),
			Engine:    engine,
			Commands:  dispatcher,
			Catalogue: table,
			Journal:   journalRepo,
			Status: func() api.RuntimeStatus {
				status := api.RuntimeStatus{
					Ticks:          driver.Ticks(),
					JournalWritten: recorder.Written(),
					JournalDropped: recorder.Dropped(),
				}
				if mqttClient != nil {
					status.MQTTConnected = mqttClient.IsConnected()
				}
				if bridge != nil {
					status.BridgeDropped = bridge.Dropped()
				}
				if influxClient != nil {
					status.InfluxConnected = influxClient.IsConnected()
				}
				return status
			},
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		engine.AddSink(server)
		driver.Observe(server.ObserveTick)
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete", "junctions", len(table.IDs()))

	// The driver is the only clock; it returns when ctx is cancelled.
	if err := driver.Run(ctx); err != nil {
		return fmt.Errorf("tick driver: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// engineConfig maps the control section onto the engine's timing policy.
func engineConfig(c config.ControlConfig) arbitration.Config {
	return arbitration.Config{
		RecoverySeconds:         c.RecoverySeconds,
		DefaultClearanceSeconds: c.DefaultClearanceSeconds,
		MaxPreemptionSeconds:    c.MaxPreemptionSeconds,
		TickWorkers:             c.TickWorkers,
		OverrideDurations: map[arbitration.OverrideAction]int{
			arbitration.ActionHold:        c.OverrideDurations.Hold,
			arbitration.ActionSkip:        c.OverrideDurations.Skip,
			arbitration.ActionForceAllRed: c.OverrideDurations.ForceAllRed,
			arbitration.ActionExtendGreen: c.OverrideDurations.ExtendGreen,
		},
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
