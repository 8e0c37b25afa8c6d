package prefetch

import (
	"context"
	"testing"
	"time"

	"shiftcal/internal/calendar"
	"shiftcal/internal/engine"
	"shiftcal/internal/eventbus"
	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
	logx "shiftcal/pkg/logx"
)

func newStandardEngine(t *testing.T) *engine.Engine {
	t.Helper()
	teams, err := roster.StandardTeams(rotation.StandardTeamCount)
	if err != nil {
		t.Fatalf("StandardTeams: %v", err)
	}
	reg, err := roster.NewRegistry(teams)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cat, err := roster.NewCatalog(roster.StandardShiftTypes())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	pattern, err := rotation.StandardPattern(reg.IDs())
	if err != nil {
		t.Fatalf("StandardPattern: %v", err)
	}
	scheme := rotation.Scheme{
		Start:       calendar.NewDate(2018, time.November, 7),
		CycleLength: rotation.StandardCycleLength,
	}
	e, err := engine.New(engine.Config{}, scheme, pattern, reg, cat)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()
	if cfg.SweepSchedule != defaultSweepSchedule {
		t.Fatalf("sweep schedule = %q", cfg.SweepSchedule)
	}
	if cfg.WarmDays != defaultWarmDays || cfg.WarmRatePerSec != defaultWarmRatePerSec {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	t.Parallel()
	e := newStandardEngine(t)
	s := New(Config{Enabled: false}, e, eventbus.New(), logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if e.CachedDays() != 0 {
		t.Fatalf("disabled service warmed %d days", e.CachedDays())
	}
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	e := newStandardEngine(t)
	s := New(Config{Enabled: true, SweepSchedule: "not a cron spec"}, e, eventbus.New(), logx.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected cron parse error")
	}
}

func TestInitialWarmFillsDayCache(t *testing.T) {
	t.Parallel()
	e := newStandardEngine(t)
	s := New(Config{Enabled: true, WarmDays: 7, WarmRatePerSec: 1000}, e, eventbus.New(), logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return e.CachedDays() >= 7 })
}

func TestSchemeUpdateTriggersRewarm(t *testing.T) {
	t.Parallel()
	e := newStandardEngine(t)
	bus := eventbus.New()
	e.SetBus(bus)

	s := New(Config{Enabled: true, WarmDays: 5, WarmRatePerSec: 1000}, e, bus, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitFor(t, func() bool { return e.CachedDays() >= 5 })
	version := e.Version()

	scheme := e.Scheme()
	scheme.Start = scheme.Start.AddDays(1)
	teams, _ := roster.StandardTeams(rotation.StandardTeamCount)
	reg, _ := roster.NewRegistry(teams)
	pattern, err := rotation.StandardPattern(reg.IDs())
	if err != nil {
		t.Fatalf("StandardPattern: %v", err)
	}
	if err := e.UpdateScheme(context.Background(), scheme, pattern); err != nil {
		t.Fatalf("UpdateScheme: %v", err)
	}
	if e.Version() == version {
		t.Fatal("version should have advanced")
	}

	// The update cleared the day cache; the rewarm should refill it.
	waitFor(t, func() bool { return e.CachedDays() >= 5 })
}

func TestApplySwapsSweepSchedule(t *testing.T) {
	t.Parallel()
	e := newStandardEngine(t)
	s := New(Config{Enabled: true, WarmDays: 1}, e, eventbus.New(), logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if err := s.Apply(Config{Enabled: true, SweepSchedule: "*/5 * * * *", WarmDays: 1}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply(Config{Enabled: true, SweepSchedule: "not a spec", WarmDays: 1}); err == nil {
		t.Fatal("expected cron parse error")
	}
	// rejected schedule must not clobber the working one
	s.mu.Lock()
	got := s.cfg.SweepSchedule
	s.mu.Unlock()
	if got != "*/5 * * * *" {
		t.Fatalf("sweep schedule = %q after rejected Apply", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	t.Parallel()
	e := newStandardEngine(t)
	s := New(Config{Enabled: true, WarmDays: 1}, e, eventbus.New(), logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	s.Stop()
}
