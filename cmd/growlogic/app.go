package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-grow/internal/action"
	"github.com/nerrad567/gray-logic-grow/internal/actionlog"
	"github.com/nerrad567/gray-logic-grow/internal/api"
	"github.com/nerrad567/gray-logic-grow/internal/clock"
	"github.com/nerrad567/gray-logic-grow/internal/command"
	"github.com/nerrad567/gray-logic-grow/internal/dispatch"
	"github.com/nerrad567/gray-logic-grow/internal/entity"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/kafka"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-grow/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-grow/internal/planner"
	"github.com/nerrad567/gray-logic-grow/internal/schedule"
	"github.com/nerrad567/gray-logic-grow/internal/scheduler"
	"github.com/nerrad567/gray-logic-grow/internal/transport"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg *config.Config
	log *logging.Logger
	loc *time.Location

	db       *database.DB
	mqtt     *mqtt.Client
	influx   *influxdb.Client
	kafka    *kafka.Publisher
	registry *entity.Registry

	csv    *actionlog.CSVSink
	sqlite *actionlog.SQLiteSink

	sched      *scheduler.Scheduler
	dispatcher *dispatch.Dispatcher
	planner    *planner.Planner

	closers []func()
}

// loadConfig reads the config file and builds the configured logger.
func loadConfig(path string) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)
	log.Debug("configuration loaded", "path", path)
	return cfg, log, nil
}

// openStore opens the database when needed and the entity registry and log
// sinks. It is enough for read-only commands.
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading timezone: %w", err)
	}
	a.loc = loc

	if cfg.DatabaseRequired() {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.onClose(func() {
			if err := db.Close(); err != nil {
				log.Error("error closing database", "error", err)
			}
		})
		if err := db.Migrate(ctx); err != nil {
			a.close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		a.db = db
		log.Debug("database ready", "path", db.Path())
	}

	var repo entity.Repository
	switch cfg.Entities.Source {
	case config.EntitySourceDatabase:
		repo = entity.NewSQLiteRepository(a.db.DB)
	default:
		repo, err = entity.NewStaticRepository(cfg.Entities.Static)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("loading static entities: %w", err)
		}
	}
	a.registry = entity.NewRegistry(repo)
	a.registry.SetLogger(log)
	if err := a.registry.Refresh(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.csv, err = actionlog.NewCSVSink(cfg.ActionLog.Dir)
	if err != nil {
		a.close()
		return nil, err
	}
	if cfg.ActionLog.Database {
		a.sqlite = actionlog.NewSQLiteSink(a.db.DB)
	}
	return a, nil
}

// openApp builds the full dispatch pipeline on top of openStore.
func openApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (*app, error) {
	// A broken wire table must stop the process before anything is sent.
	if err := command.Validate(); err != nil {
		return nil, err
	}

	a, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	notifiers, err := a.connectNotifiers()
	if err != nil {
		a.close()
		return nil, err
	}

	tr, err := transport.New(cfg.Transport)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configuring transport: %w", err)
	}
	tr.SetLogger(log.With("component", "transport"))

	sinks := actionlog.Multi{a.csv}
	if a.sqlite != nil {
		sinks = append(sinks, a.sqlite)
	}

	var notifier actionlog.Notifier
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	c := clock.Real{}
	a.sched = scheduler.New(c, c)
	a.sched.SetLogger(log.With("component", "scheduler"))

	a.dispatcher = dispatch.New(tr, a.registry, sinks, notifier, c)
	a.dispatcher.SetLogger(log.With("component", "dispatch"))

	a.planner, err = planner.New(planner.Options{
		Source:    a.scheduleSource(),
		Scheduler: a.sched,
		Handler:   a.dispatcher.Handle,
		Entities:  a.registry,
		Clock:     c,
		Location:  a.loc,
		PlanCron:  cfg.Schedule.PlanCron,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.planner.SetLogger(log.With("component", "planner"))

	log.Info("pipeline ready",
		"transport", cfg.Transport.Address,
		"entities", len(a.registry.IDs()),
		"sqlite_log", a.sqlite != nil,
		"notifiers", len(notifiers),
	)
	return a, nil
}

// connectNotifiers connects the optional MQTT, InfluxDB and Kafka outputs.
func (a *app) connectNotifiers() (actionlog.Notifiers, error) {
	var out actionlog.Notifiers
	cfg, log := a.cfg, a.log

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
		client.SetLogger(log)
		a.mqtt = client
		a.onClose(func() {
			if err := client.Close(); err != nil {
				log.Error("error closing MQTT", "error", err)
			}
		})
		out = append(out, actionlog.NewMQTTNotifier(client, byte(cfg.MQTT.QoS))) //nolint:gosec // QoS validated 0-2
		log.Info("MQTT connected", "broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port))
	}

	if cfg.InfluxDB.Enabled {
		client, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		client.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		a.influx = client
		a.onClose(func() {
			if err := client.Close(); err != nil {
				log.Error("error closing InfluxDB", "error", err)
			}
		})
		out = append(out, actionlog.NewInfluxNotifier(client))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	if cfg.Kafka.Enabled {
		pub, err := kafka.NewPublisher(cfg.Kafka)
		if err != nil {
			return nil, fmt.Errorf("configuring Kafka: %w", err)
		}
		a.kafka = pub
		a.onClose(func() {
			if err := pub.Close(); err != nil {
				log.Error("error closing Kafka writer", "error", err)
			}
		})
		out = append(out, actionlog.NewKafkaNotifier(pub))
		log.Info("Kafka publisher ready", "brokers", cfg.Kafka.Brokers, "topic", pub.Topic())
	}

	return out, nil
}

// scheduleSource re-reads the schedule file on every plan.
func (a *app) scheduleSource() planner.Source {
	path := a.cfg.Schedule.File
	return func() ([]action.Request, error) {
		if path == "" {
			return nil, errors.New("schedule.file is not configured")
		}
		return schedule.Load(path)
	}
}

// reader returns the action log reader, preferring SQLite.
func (a *app) reader() actionlog.Reader {
	if a.sqlite != nil {
		return a.sqlite
	}
	return a.csv
}

// startAPI starts the status API when enabled.
func (a *app) startAPI(ctx context.Context) error {
	if !a.cfg.API.Enabled {
		return nil
	}

	health := map[string]api.HealthChecker{}
	if a.db != nil {
		health["database"] = a.db
	}
	if a.mqtt != nil {
		health["mqtt"] = a.mqtt
	}
	if a.influx != nil {
		health["influxdb"] = a.influx
	}

	srv, err := api.New(api.Deps{
		Config:    a.cfg.API,
		Logger:    a.log.With("component", "api"),
		Scheduler: a.sched,
		Log:       a.reader(),
		Stats:     a.dispatcher,
		Planner:   a.planner,
		Entities:  a.registry,
		Health:    health,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	a.onClose(func() {
		if err := srv.Close(); err != nil {
			a.log.Error("error closing API server", "error", err)
		}
	})
	return nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close runs the registered closers in reverse order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
