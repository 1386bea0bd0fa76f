// Package app wires the process together: config, logging, stores,
// dispatch, the trigger runtime and the scheduling engine.
package app

import (
	"context"
	"fmt"
	"sync"

	"dietnotify/internal/config"
	"dietnotify/internal/dispatch"
	"dietnotify/internal/eventbus"
	"dietnotify/internal/reminder"
	"dietnotify/internal/storage"
	"dietnotify/internal/store"
	"dietnotify/internal/trigger"
	"dietnotify/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger
	bus    eventbus.Bus

	stores store.Stores
	disp   dispatch.Dispatcher
	hist   storage.Store
	reg    *trigger.Registry
	engine *reminder.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option tweaks the loaded config before components are built.
type Option func(*config.Config)

// WithDispatchDriver overrides the configured dispatch driver. Inspection
// commands use it to force dry-run so they never push real notifications.
func WithDispatchDriver(driver string) Option {
	return func(c *config.Config) { c.Dispatch.Driver = driver }
}

// New loads the config and constructs every component. Nothing runs yet;
// call Start.
func New(ctx context.Context, configPath string, opts ...Option) (*App, error) {
	mgr := config.NewManager(configPath)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	for _, opt := range opts {
		opt(cfg)
	}

	logSvc, log := logx.NewService(logxConfig(cfg.Logging))
	mgr.SetLogger(log.With(logx.String("component", "config")))

	bus := eventbus.New()

	// Local delivery history is best-effort: a broken sqlite file must not
	// keep reminders from going out.
	hist, err := storage.Open(storage.Config{
		Driver: cfg.Storage.Driver,
		Path:   cfg.Storage.Path,
	}, log.With(logx.String("component", "storage")))
	if err != nil {
		log.Warn("delivery history disabled", logx.Err(err))
		hist = nil
	}

	stores, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		RestURL:     cfg.Store.RestURL,
		RestAPIKey:  cfg.Store.RestAPIKey,
		DatabaseURL: cfg.Store.DatabaseURL,
	}, log.With(logx.String("component", "store")))
	if err != nil {
		logSvc.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}

	disp, err := dispatch.Open(ctx, dispatch.Config{
		Driver:          cfg.Dispatch.Driver,
		CredentialsPath: cfg.Dispatch.CredentialsPath,
		RatePerSec:      cfg.Dispatch.RatePerSec,
	}, log.With(logx.String("component", "dispatch")))
	if err != nil {
		stores.Close()
		logSvc.Close()
		return nil, fmt.Errorf("open dispatcher: %w", err)
	}

	reg := trigger.New(trigger.Config{
		Timezone:  cfg.Timezone,
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
	}, log.With(logx.String("component", "trigger")))

	engine := reminder.New(reminder.Config{
		DefaultLeadTimeMinutes: cfg.Scheduler.DefaultLeadTimeMinutes,
	}, reg, disp, stores, bus, log.With(logx.String("component", "reminder")))

	return &App{
		cfgMgr: mgr,
		logSvc: logSvc,
		log:    log,
		bus:    bus,
		stores: stores,
		disp:   disp,
		hist:   hist,
		reg:    reg,
		engine: engine,
	}, nil
}

// Engine exposes the scheduling engine for commands that drive it
// directly (test pushes, status).
func (a *App) Engine() *reminder.Service { return a.engine }

// Start arms the trigger runtime, restores jobs from the remote store and
// launches the background loops (config watch/reload, delivery recorder).
func (a *App) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.reg.Start(runCtx)
	a.engine.Restore(runCtx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Warn("config watch stopped", logx.Err(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reloadLoop(runCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.recordLoop(runCtx)
	}()

	a.log.Info("dietnotify started")
}

// Stop tears everything down in reverse dependency order.
func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	a.reg.Stop(ctx)
	a.wg.Wait()
	if a.hist != nil {
		_ = a.hist.Close()
	}
	a.stores.Close()
	a.log.Info("dietnotify stopped")
	a.logSvc.Close()
}

// reloadLoop re-applies hot-reloadable settings when the config file
// changes: log sinks and the trigger runtime (timezone, workers).
func (a *App) reloadLoop(ctx context.Context) {
	ch := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-ch:
			if !ok {
				return
			}
			a.logSvc.Apply(logxConfig(cfg.Logging))
			a.reg.Apply(trigger.Config{
				Timezone:  cfg.Timezone,
				Workers:   cfg.Scheduler.Workers,
				QueueSize: cfg.Scheduler.QueueSize,
			})
			if ap, ok := a.disp.(interface{ Apply(dispatch.Config) }); ok {
				ap.Apply(dispatch.Config{
					Driver:          cfg.Dispatch.Driver,
					CredentialsPath: cfg.Dispatch.CredentialsPath,
					RatePerSec:      cfg.Dispatch.RatePerSec,
				})
			}
			a.log.Info("runtime settings reapplied")
		}
	}
}

// recordLoop drains delivery events off the bus into the local history
// store.
func (a *App) recordLoop(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(64, reminder.EventDispatchSent, reminder.EventDispatchFailed)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if a.hist == nil {
				continue
			}
			de, ok := ev.Data.(reminder.DeliveryEvent)
			if !ok {
				continue
			}
			err := a.hist.AppendDelivery(ctx, storage.DeliveryEntry{
				At:     ev.Time,
				UserID: de.UserID,
				JobID:  de.JobID,
				Meal:   de.Meal,
				Kind:   de.Kind,
				Token:  de.Token,
				OK:     de.OK,
				Error:  de.Error,
			})
			if err != nil {
				a.log.Warn("delivery history write failed", logx.Err(err))
			}
		}
	}
}

func logxConfig(c config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   c.Level,
		Console: c.Console,
		File: logx.FileConfig{
			Enabled: c.File.Enabled,
			Path:    c.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    c.Telegram.Enabled,
			BotToken:   c.Telegram.BotToken,
			ChatID:     c.Telegram.ChatID,
			MinLevel:   c.Telegram.MinLevel,
			RatePerSec: c.Telegram.RatePerSec,
		},
	}
}
