package prefetch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"shiftcal/internal/calendar"
	"shiftcal/internal/engine"
	"shiftcal/internal/eventbus"
	logx "shiftcal/pkg/logx"
)

const (
	defaultSweepSchedule  = "@hourly"
	defaultWarmDays       = 30
	defaultWarmRatePerSec = 200

	eventBuffer = 16
)

type Config struct {
	Enabled bool

	// SweepSchedule is a cron spec or descriptor for periodic cache sweeps.
	SweepSchedule string

	// WarmDays is how many days ahead of today get precomputed after a
	// rotation change.
	WarmDays int

	// WarmRatePerSec caps how fast warm-up generates days so a large window
	// doesn't monopolize the engine right after an update.
	WarmRatePerSec int
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.SweepSchedule) == "" {
		c.SweepSchedule = defaultSweepSchedule
	}
	if c.WarmDays <= 0 {
		c.WarmDays = defaultWarmDays
	}
	if c.WarmRatePerSec <= 0 {
		c.WarmRatePerSec = defaultWarmRatePerSec
	}
	return c
}

type Service struct {
	eng *engine.Engine
	bus eventbus.Bus
	log logx.Logger

	parser cron.Parser

	mu        sync.Mutex
	cfg       Config
	c         *cron.Cron
	sweepID   cron.EntryID
	unsub     func()
	runCancel context.CancelFunc
	group     *errgroup.Group

	// warmCancel stops an in-flight warm-up when a newer change supersedes it.
	warmMu     sync.Mutex
	warmCancel context.CancelFunc
}

func New(cfg Config, eng *engine.Engine, bus eventbus.Bus, log logx.Logger) *Service {
	return &Service{
		cfg: cfg.withDefaults(),
		eng: eng,
		bus: bus,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Start launches the sweep cron and the change listener. It is a no-op when
// the service is disabled, and returns an error only for a bad cron spec.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled || s.c != nil {
		return nil
	}

	c := cron.New(cron.WithParser(s.parser))
	id, err := c.AddFunc(s.cfg.SweepSchedule, s.sweep)
	if err != nil {
		return fmt.Errorf("sweep schedule %q: %w", s.cfg.SweepSchedule, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)

	events, unsub := s.bus.Subscribe(eventBuffer)
	g.Go(func() error {
		s.listen(gctx, events)
		return nil
	})

	s.c = c
	s.sweepID = id
	s.unsub = unsub
	s.runCancel = cancel
	s.group = g
	c.Start()

	if !s.log.IsZero() {
		s.log.Debug("prefetch started",
			logx.String("sweep_schedule", s.cfg.SweepSchedule),
			logx.Int("warm_days", s.cfg.WarmDays),
			logx.Int("warm_rate_per_sec", s.cfg.WarmRatePerSec))
	}

	// Initial warm so the first queries after boot hit the cache.
	s.triggerWarm(gctx, g)
	return nil
}

// Stop halts the cron, unsubscribes and waits for in-flight warm-ups.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.c
	unsub := s.unsub
	cancel := s.runCancel
	g := s.group
	s.c = nil
	s.unsub = nil
	s.runCancel = nil
	s.group = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	<-c.Stop().Done()
	if g != nil {
		_ = g.Wait()
	}
	if !s.log.IsZero() {
		s.log.Debug("prefetch stopped")
	}
}

// Apply updates tunables. A changed sweep schedule swaps the cron entry in
// place; enable/disable transitions are handled by the caller via Start/Stop.
func (s *Service) Apply(cfg Config) error {
	cfg = cfg.withDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.cfg
	s.cfg = cfg
	if s.c == nil || old.SweepSchedule == cfg.SweepSchedule {
		return nil
	}
	id, err := s.c.AddFunc(cfg.SweepSchedule, s.sweep)
	if err != nil {
		s.cfg.SweepSchedule = old.SweepSchedule
		return fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	s.c.Remove(s.sweepID)
	s.sweepID = id
	return nil
}

func (s *Service) sweep() {
	n := s.eng.SweepCaches()
	if !s.log.IsZero() {
		s.log.Debug("cache sweep", logx.Int("expired", n), logx.Int("cached_days", s.eng.CachedDays()))
	}
}

func (s *Service) listen(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case eventbus.EventSchemeUpdated, eventbus.EventRosterReloaded, eventbus.EventCatalogReloaded:
				s.mu.Lock()
				g := s.group
				s.mu.Unlock()
				if g != nil {
					s.triggerWarm(ctx, g)
				}
			}
		}
	}
}

// triggerWarm starts a warm-up, cancelling any previous one still running.
func (s *Service) triggerWarm(ctx context.Context, g *errgroup.Group) {
	s.warmMu.Lock()
	if s.warmCancel != nil {
		s.warmCancel()
	}
	wctx, cancel := context.WithCancel(ctx)
	s.warmCancel = cancel
	s.warmMu.Unlock()

	g.Go(func() error {
		defer cancel()
		s.warm(wctx)
		return nil
	})
}

func (s *Service) warm(ctx context.Context) {
	s.mu.Lock()
	days := s.cfg.WarmDays
	rps := s.cfg.WarmRatePerSec
	s.mu.Unlock()

	lim := rate.NewLimiter(rate.Limit(rps), rps)
	from := calendar.DateOf(time.Now())

	warmed := 0
	for i := 0; i < days; i++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		if _, err := s.eng.ScheduleForDate(from.AddDays(i)); err != nil {
			if !s.log.IsZero() {
				s.log.Warn("warm-up aborted", logx.String("date", from.AddDays(i).String()), logx.Err(err))
			}
			return
		}
		warmed++
	}
	if !s.log.IsZero() {
		s.log.Debug("warm-up complete", logx.String("from", from.String()), logx.Int("days", warmed))
	}
}
