package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/healthbridge/internal/backfill"
	"github.com/nerrad567/healthbridge/internal/infrastructure/config"
	"github.com/nerrad567/healthbridge/internal/infrastructure/database"
	"github.com/nerrad567/healthbridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/healthbridge/internal/infrastructure/logging"
	"github.com/nerrad567/healthbridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/healthbridge/internal/infrastructure/tsdb"
	"github.com/nerrad567/healthbridge/internal/journal"
	"github.com/nerrad567/healthbridge/internal/progress"
	"github.com/nerrad567/healthbridge/internal/remote"
	"github.com/nerrad567/healthbridge/internal/telemetry"
)

// sinkClient is a connected time-series database.
type sinkClient interface {
	backfill.Sink
	Close() error
}

// app holds the wired components of an import run. Close releases them in
// reverse order of acquisition.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	rng      backfill.Range
	store    *progress.Store
	client   *remote.Client
	engine   *backfill.Engine
	recorder *telemetry.Recorder
	journal  *journal.SQLiteRepository

	closers []func()
}

// newApp wires the device client, progress store, sink, telemetry and
// engine from a validated configuration.
//
// Outside a dry run the progress file is locked for the lifetime of the
// app and the sink must be reachable. MQTT and the journal are optional:
// failing to reach them is logged and the import continues without them.
func newApp(ctx context.Context, cfg *config.Config, log *logging.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	now := time.Now()
	if a.rng, err = importRange(cfg, now); err != nil {
		return nil, err
	}

	tz := cfg.ResolvedTZOffset(now)
	loc, err := backfill.ParseOffset(tz)
	if err != nil {
		return nil, err
	}

	dryRun := cfg.Backfill.DryRun
	if dryRun {
		a.store = progress.New(cfg.Backfill.ProgressFile, progress.WithoutPersistence())
	} else {
		a.store = progress.New(cfg.Backfill.ProgressFile)
		unlock, lockErr := a.store.Lock()
		if lockErr != nil {
			return nil, lockErr
		}
		a.onClose(unlock)
	}
	if err = a.store.Load(); err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}

	var sink backfill.Sink
	if !dryRun {
		s, sinkErr := connectSink(ctx, cfg.Sink)
		if sinkErr != nil {
			return nil, sinkErr
		}
		a.onClose(func() {
			if closeErr := s.Close(); closeErr != nil {
				log.Error("error closing sink", "error", closeErr)
			}
		})
		sink = s
		log.Info("sink connected", "backend", cfg.Sink.Backend)

		a.recorder = a.newRecorder(ctx, s)
	}

	a.client = remote.New(remote.Config{
		Host:         cfg.Device.Host,
		Port:         cfg.Device.Port,
		QueryTimeout: cfg.Device.QueryTimeout,
		ProbeTimeout: cfg.Device.ProbeTimeout,
		Retries:      cfg.Device.Retries,
		RetryDelay:   cfg.Device.RetryDelay,
		Metrics:      cfg.Device.Metrics,
	})
	a.client.SetLogger(log.With("component", "device"))

	a.engine, err = backfill.NewEngine(backfill.Config{
		Range:        a.rng,
		Location:     loc,
		RequestDelay: cfg.Backfill.RequestDelay,
		DryRun:       dryRun,
	}, a.client, sink, a.store)
	if err != nil {
		return nil, err
	}
	a.engine.SetLogger(log.With("component", "backfill"))
	if a.recorder != nil {
		a.engine.SetTelemetry(a.recorder)
	}

	log.Info("backfill configured",
		"device", cfg.DeviceAddress(),
		"range", a.rng.String(),
		"tz_offset", tz,
		"progress_file", cfg.Backfill.ProgressFile,
		"dry_run", dryRun,
	)

	return a, nil
}

// newRecorder builds the telemetry fan-out: the sink always, the journal
// and MQTT when enabled and reachable.
func (a *app) newRecorder(ctx context.Context, sink telemetry.PointWriter) *telemetry.Recorder {
	opts := []telemetry.Option{
		telemetry.WithPoints(sink),
		telemetry.WithLogger(a.log.With("component", "telemetry")),
	}

	if a.cfg.Journal.Enabled {
		repo, db, err := journal.Open(ctx, a.cfg.Journal)
		if err != nil {
			a.log.Warn("journal unavailable, continuing without it", "error", err)
		} else {
			a.journal = repo
			a.onClose(func() { closeDB(a.log, db) })
			opts = append(opts, telemetry.WithJournal(repo))
		}
	}

	if a.cfg.MQTT.Enabled {
		client, err := mqtt.Connect(a.cfg.MQTT)
		if err != nil {
			a.log.Warn("MQTT unavailable, continuing without it", "error", err)
		} else {
			client.SetLogger(a.log.With("component", "mqtt"))
			client.SetOnConnect(func() {
				a.log.Info("MQTT reconnected")
			})
			client.SetOnDisconnect(func(err error) {
				a.log.Warn("MQTT disconnected, telemetry publishes will be dropped until it reconnects", "error", err)
			})
			a.onClose(func() {
				if closeErr := client.Close(); closeErr != nil {
					a.log.Error("error closing MQTT", "error", closeErr)
				}
			})
			opts = append(opts, telemetry.WithPublisher(client))
			a.log.Info("MQTT connected", "broker", mqtt.BrokerURL(a.cfg.MQTT.Broker))
		}
	}

	return telemetry.New(opts...)
}

// connectSink connects the configured backend.
func connectSink(ctx context.Context, cfg config.SinkConfig) (sinkClient, error) {
	switch cfg.Backend {
	case config.SinkInfluxDB:
		c, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		return c, nil
	case config.SinkVictoriaMetrics:
		c, err := tsdb.Connect(ctx, cfg.VictoriaMetrics)
		if err != nil {
			return nil, fmt.Errorf("connecting to VictoriaMetrics: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported sink backend %q", cfg.Backend)
	}
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases everything newApp acquired.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeDB(log *logging.Logger, db *database.DB) {
	if err := db.Close(); err != nil {
		log.Error("error closing journal", "error", err)
	}
}
