// Command datacenter wires the pipeline's components together and runs
// them under the supervisor until a termination signal arrives. The
// upstream gateway binding and calendar-driven alarm scheduler are outside
// this module's scope; GatewayAdapter and AlarmSink below are the minimal
// interfaces an external caller wires against.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ionflux/datacenter"
	"github.com/ionflux/datacenter/barengine"
	"github.com/ionflux/datacenter/config"
	"github.com/ionflux/datacenter/contracts"
	"github.com/ionflux/datacenter/eventbus"
	"github.com/ionflux/datacenter/metrics"
	"github.com/ionflux/datacenter/model"
	"github.com/ionflux/datacenter/storage/appendlog"
	"github.com/ionflux/datacenter/storage/coldarchive"
	"github.com/ionflux/datacenter/storage/hotstore"
	"github.com/ionflux/datacenter/storage/router"
	"github.com/ionflux/datacenter/supervisor"
)

// GatewayAdapter is implemented outside this module by whatever binds to
// the real exchange gateway; it publishes ticks and gateway-ready events
// onto the bus this module owns.
type GatewayAdapter interface {
	Start(ctx context.Context, bus *eventbus.Bus) error
	Stop(ctx context.Context) error
}

// AlarmSink receives operational alarms this module raises (e.g. a hot
// store flush that could not commit a buffered batch) for an external
// paging/notification system to act on.
type AlarmSink interface {
	Alarm(ctx context.Context, reason string, fields map[string]any)
}

// slogLogger adapts log/slog to datacenter.Logger.
type slogLogger struct{ l *slog.Logger }

func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }

// logAlarmSink is the default AlarmSink until a real paging/notification
// system is wired in from outside this module; it surfaces the alarm
// through the same structured logger as everything else.
type logAlarmSink struct{ logger datacenter.Logger }

func (a logAlarmSink) Alarm(ctx context.Context, reason string, fields map[string]any) {
	args := make([]any, 0, len(fields)*2+2)
	args = append(args, "reason", reason)
	for k, v := range fields {
		args = append(args, k, v)
	}
	a.logger.Error("alarm raised", args...)
}

func main() {
	logger := slogLogger{l: slog.New(slog.NewTextHandler(os.Stdout, nil))}

	if err := run(logger); err != nil {
		logger.Error("datacenter exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger datacenter.Logger) error {
	cfg, err := config.Load(os.Getenv("DATACENTER_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	bus := eventbus.New(eventbus.Config{
		MarketWorkers:  cfg.EventBus.MarketWorkers,
		GeneralWorkers: cfg.EventBus.GeneralWorkers,
		AsyncShards:    cfg.EventBus.AsyncShards,
		QueueSize:      cfg.EventBus.QueueSize,
		TimerInterval:  time.Duration(cfg.EventBus.TimerInterval) * time.Second,
	}, logger)

	alarmSink := logAlarmSink{logger: logger}
	hot, err := hotstore.New(cfg.HotStore.DataDir, cfg.HotStore.FlushThreshold, alarmSink, logger)
	if err != nil {
		return fmt.Errorf("init hot store: %w", err)
	}
	cold := coldarchive.New(cfg.ColdArchive.DataDir, logger)
	storageRouter := router.New(hot, cold, cfg.Archiver.RetentionDays, logger)
	archiver := coldarchive.NewArchiver(hot, cold, cfg.Archiver.RetentionDays, logger)

	appendLog, err := appendlog.New(cfg.AppendLog.DataDir, cfg.AppendLog.Shards, cfg.AppendLog.BatchThreshold, cfg.AppendLog.QueueSize, logger)
	if err != nil {
		return fmt.Errorf("init append log: %w", err)
	}

	registry := contracts.New(bus, logger,
		time.Duration(cfg.ContractRegistry.MaxWaitSeconds)*time.Second,
		time.Duration(cfg.ContractRegistry.CheckIntervalSecond)*time.Second)

	bars := barengine.NewSet(cfg.BarIntervals, func(bar model.Bar) {
		batch := model.WriteBatch{InstrumentID: bar.InstrumentID, TradingDay: bar.TradingDay, Bars: []model.Bar{bar}}
		if err := storageRouter.SaveBars(context.Background(), batch); err != nil {
			logger.Error("save bar failed", "instrument", bar.InstrumentID, "error", err)
		}
		if err := bus.Publish(context.Background(), model.Event{Type: model.EventBar, Source: "barengine.Set", Payload: bar}); err != nil {
			logger.Error("publish bar event failed", "error", err)
		}
	})

	metricsCollector := metrics.New()
	cronScheduler := cron.New(cron.WithSeconds())

	sup := supervisor.New(logger)

	if err := sup.Register("eventbus", nil,
		func(ctx context.Context) error { return bus.Start(ctx) },
		func(ctx context.Context) error { return bus.Stop(ctx) },
		nil,
	); err != nil {
		return err
	}

	if err := sup.Register("hotstore", []string{"eventbus"},
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return hot.Close(ctx) },
		func(ctx context.Context) (bool, string) {
			zombies := hot.ZombieFlushCount(time.Minute)
			metricsCollector.SyncZombieFlushCount(zombies)
			return zombies == 0, fmt.Sprintf("%d zombie day files", zombies)
		},
	); err != nil {
		return err
	}

	if err := sup.Register("coldarchive", []string{"eventbus"}, nil, nil, nil); err != nil {
		return err
	}

	if err := sup.Register("appendlog", []string{"eventbus"},
		func(ctx context.Context) error { appendLog.Start(ctx); return nil },
		func(ctx context.Context) error { appendLog.Stop(30 * time.Second); return nil },
		func(ctx context.Context) (bool, string) {
			stats := appendLog.Stats()
			metricsCollector.SyncAppendLog(metrics.AppendLogStats{
				RowsWritten: stats.RowsWritten, RowsFailed: stats.RowsFailed, DirectWrites: stats.DirectWrites,
			})
			return stats.RowsFailed == 0, fmt.Sprintf("%d failed rows", stats.RowsFailed)
		},
	); err != nil {
		return err
	}

	if err := sup.Register("router", []string{"hotstore", "coldarchive", "appendlog"}, nil, nil, nil); err != nil {
		return err
	}

	if err := sup.Register("contracts", []string{"router"},
		func(ctx context.Context) error {
			if err := registry.Load(cfg.ContractRegistry.InstrumentTablePath); err != nil {
				return err
			}
			return registry.Start(ctx)
		},
		nil, nil,
	); err != nil {
		return err
	}

	if err := sup.Register("barengine", []string{"router"}, nil, nil, nil); err != nil {
		return err
	}

	if err := sup.Register("archiver", []string{"router", "barengine"},
		func(ctx context.Context) error {
			_, err := cronScheduler.AddFunc(cfg.Archiver.CronSchedule, func() {
				metricsCollector.ArchiverRunsTotal.Inc()
				if _, err := archiver.Run(context.Background(), time.Now()); err != nil {
					metricsCollector.ArchiverRunsFailed.Inc()
					logger.Error("archiver cycle failed", "error", err)
				}
			})
			cronScheduler.Start()
			return err
		},
		func(ctx context.Context) error {
			stopCtx := cronScheduler.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
		nil,
	); err != nil {
		return err
	}

	// Wire the bus's tick subscription last, once every storage dependency
	// it could touch is registered (actual Start ordering is topological,
	// not registration order, but the subscription itself must exist
	// before ticks can start flowing).
	if _, err := bus.SubscribeAsync(model.EventTick, func(ctx context.Context, evt model.Event) error {
		tick, ok := evt.Payload.(model.Tick)
		if !ok {
			return nil
		}
		metricsCollector.TicksReceived.Inc()
		bars.UpdateTick(tick)

		batch := model.WriteBatch{InstrumentID: tick.InstrumentID, TradingDay: tick.TradingDay, Ticks: []model.Tick{tick}}
		if err := storageRouter.SaveTicks(ctx, batch); err != nil {
			logger.Error("save tick failed", "instrument", tick.InstrumentID, "error", err)
		}
		appendLog.Submit(tick.InstrumentID, tick.TradingDay, []model.Tick{tick})
		return nil
	}); err != nil {
		return fmt.Errorf("subscribe tick handler: %w", err)
	}

	if _, err := bus.Subscribe(model.EventBar, func(ctx context.Context, evt model.Event) error {
		metricsCollector.BarsGenerated.Inc()
		return nil
	}); err != nil {
		return fmt.Errorf("subscribe bar handler: %w", err)
	}

	return sup.Run(context.Background())
}
