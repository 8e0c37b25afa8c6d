package app

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"shiftcal/internal/config"
	"shiftcal/internal/engine"
	"shiftcal/internal/eventbus"
	"shiftcal/internal/prefetch"
	"shiftcal/internal/storage"
	logx "shiftcal/pkg/logx"
)

// App wires config, logging, storage, the schedule engine and the prefetch
// service together and owns their lifecycle.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *Supervisor

	log  logx.Logger
	logs *logx.Service

	store storage.Store
	bus   eventbus.Bus
	eng   *engine.Engine
	pre   *prefetch.Service
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		store, err = storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
	}

	data, err := loadOrSeed(context.Background(), store, cfg.Scheme, log)
	if err != nil {
		return nil, err
	}

	engCfg, err := engineConfig(cfg.Cache)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engCfg, data.scheme, data.pattern, data.reg, data.cat)
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()
	eng.SetLogger(log.With(logx.String("comp", "engine")))
	eng.SetBus(bus)
	if store != nil {
		eng.SetPersister(store)
	}

	pre := prefetch.New(prefetchConfig(cfg.Prefetch), eng, bus, log.With(logx.String("comp", "prefetch")))

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logs,
		store:   store,
		bus:     bus,
		eng:     eng,
		pre:     pre,
	}, nil
}

// Engine exposes the query facade.
func (a *App) Engine() *engine.Engine { return a.eng }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func engineConfig(cc config.CacheConfig) (engine.Config, error) {
	dayTTL, err := config.ParseDurationField("cache.day_ttl", cc.DayTTL)
	if err != nil {
		return engine.Config{}, err
	}
	snapTTL, err := config.ParseDurationField("cache.snapshot_ttl", cc.SnapshotTTL)
	if err != nil {
		return engine.Config{}, err
	}
	return engine.Config{
		DayTTL:       dayTTL,
		DayHighWater: cc.DayHighWater,
		SnapshotTTL:  snapTTL,
	}, nil
}

func prefetchConfig(pc config.PrefetchConfig) prefetch.Config {
	return prefetch.Config{
		Enabled:        pc.Enabled,
		SweepSchedule:  pc.SweepSchedule,
		WarmDays:       pc.WarmDays,
		WarmRatePerSec: pc.WarmRatePerSec,
	}
}

func (a *App) Start(ctx context.Context) error {
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	// transactional config reload: validate before commit/publish
	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(c context.Context, cfg *config.Config) error {
		// A scheme section that cannot build a rotation must not be committed.
		if _, err := buildFromConfig(cfg.Scheme); err != nil {
			return err
		}
		if _, err := engineConfig(cfg.Cache); err != nil {
			return err
		}
		return nil
	})

	if err := a.pre.Start(a.sup.Context()); err != nil {
		return err
	}

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started")
	return nil
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	// Track last applied config to generate a safe diff summary for logging.
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config in the channel.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto APPLY
				}
			}
		APPLY:
			sections, attrs := config.SummarizeChange(lastApplied, newCfg)
			if len(sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				lastApplied = newCfg
				continue
			}
			a.log.Debug("config change summary",
				append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)

			a.applyReload(ctx, lastApplied, newCfg)
			lastApplied = newCfg

			a.log.Info("config reloaded", logx.String("changed", strings.Join(sections, ",")))
		}
	}
}

func (a *App) applyReload(ctx context.Context, oldCfg, newCfg *config.Config) {
	// logging first so later steps log at the new level
	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
	})

	// prefetch tunables and enable/disable transitions
	if err := a.pre.Apply(prefetchConfig(newCfg.Prefetch)); err != nil {
		a.log.Warn("prefetch config rejected", logx.Err(err))
	}
	wasEnabled := oldCfg != nil && oldCfg.Prefetch.Enabled
	if wasEnabled && !newCfg.Prefetch.Enabled {
		a.log.Info("prefetch disabled via config")
		a.pre.Stop()
	} else if !wasEnabled && newCfg.Prefetch.Enabled {
		a.log.Info("prefetch enabled via config")
		if err := a.pre.Start(ctx); err != nil {
			a.log.Warn("prefetch start failed", logx.Err(err))
		}
	}

	// rotation change
	if oldCfg == nil || !reflect.DeepEqual(oldCfg.Scheme, newCfg.Scheme) {
		a.applyScheme(ctx, newCfg.Scheme)
	}
}

// applyScheme rebuilds the rotation from the scheme section and pushes it
// into the engine. Registry and scheme are interdependent: a grown roster
// must land before a pattern that references the new teams, a shrunk one
// after. Try registry-first, then fall back to scheme-first.
func (a *App) applyScheme(ctx context.Context, sc config.SchemeConfig) {
	data, err := buildFromConfig(sc)
	if err != nil {
		a.log.Warn("scheme config rejected", logx.Err(err))
		return
	}

	regErr := a.eng.ReloadRegistry(data.reg.All())
	if err := a.updateScheme(ctx, data); err != nil {
		a.log.Warn("scheme update failed", logx.Err(err))
		return
	}
	if regErr != nil {
		if err := a.eng.ReloadRegistry(data.reg.All()); err != nil {
			a.log.Warn("registry reload failed", logx.Err(err))
			return
		}
	}
	if err := a.eng.ReloadCatalog(data.cat.All()); err != nil {
		a.log.Warn("catalog reload failed", logx.Err(err))
	}
}

func (a *App) updateScheme(ctx context.Context, data rotationData) error {
	err := a.eng.UpdateScheme(ctx, data.scheme, data.pattern)
	if err != nil {
		if !errors.Is(err, engine.ErrPersistFailed) {
			return err
		}
		a.log.Warn("scheme persisted in memory only", logx.Err(err))
	}
	if a.store != nil && err == nil {
		applied := a.eng.Scheme()
		if auditErr := a.store.AppendAudit(ctx, storage.AuditEntry{
			At:             time.Now().UTC(),
			Revision:       applied.Revision,
			Action:         "update",
			StartDate:      applied.Start.String(),
			CycleLength:    applied.CycleLength,
			PatternVersion: applied.PatternVersion,
			Fingerprint:    data.pattern.Fingerprint(),
		}); auditErr != nil {
			a.log.Warn("audit entry failed", logx.Err(auditErr))
		}
	}
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	// Cancel the run context first so background loops start unwinding immediately.
	a.sup.Cancel()

	// Bound each shutdown step so one component can't stall the whole stop.
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Err(stepCtx.Err()))
		}
	}

	step("prefetch", 3*time.Second, func(context.Context) error { a.pre.Stop(); return nil })
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	if a.store != nil {
		step("storage", 2*time.Second, func(context.Context) error { return a.store.Close() })
	}

	a.log.Info("stopped")
	return a.logs.Close()
}
