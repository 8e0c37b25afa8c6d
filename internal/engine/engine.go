package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"shiftcal/internal/calendar"
	"shiftcal/internal/eventbus"
	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
	"shiftcal/internal/schedule"
	"shiftcal/internal/schedule/cache"
	"shiftcal/pkg/logx"
)

var (
	// ErrNotFound re-exports the lookup sentinel so facade callers only need
	// this package.
	ErrNotFound = roster.ErrNotFound

	// ErrPersistFailed marks an UpdateScheme that swapped in memory but could
	// not be stored durably. Warning-class: the engine stays usable.
	ErrPersistFailed = errors.New("scheme persisted in memory only")
)

// Persister is the slice of the persistence collaborator the engine writes
// to. Satisfied by storage.Store; nil disables durability.
type Persister interface {
	SaveScheme(ctx context.Context, s rotation.Scheme, p *rotation.Pattern) error
}

// Config tunes the caches.
//
// Zero values take the cache package defaults (24h TTL, 1200-entry
// high-water mark). Now is injectable for tests.
type Config struct {
	DayTTL       time.Duration
	DayHighWater int
	SnapshotTTL  time.Duration
	Now          func() time.Time
}

// snapshot is one immutable view of the full configuration. Readers grab it
// once per operation; UpdateScheme/Reload* replace it wholesale.
type snapshot struct {
	version uint64
	scheme  rotation.Scheme
	pattern *rotation.Pattern
	reg     *roster.Registry
	cat     *roster.Catalog
}

type Engine struct {
	cfg Config
	log logx.Logger
	bus eventbus.Bus

	persist Persister

	// mu serializes configuration swaps; reads never take it.
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]

	days     *cache.Cache[calendar.Date, schedule.Day]
	teamDays *cache.Cache[teamDayKey, TeamDay]
	regSnap  *cache.Cache[uint64, []roster.Team]
	catSnap  *cache.Cache[uint64, []roster.ShiftType]

	flight singleflight.Group
}

// teamDayKey keys the per-team projection cache: the projection narrows what
// is shown but shares the underlying day computation.
type teamDayKey struct {
	date   calendar.Date
	teamID string
}

// New builds an engine over an already-validated configuration.
func New(cfg Config, scheme rotation.Scheme, pattern *rotation.Pattern,
	reg *roster.Registry, cat *roster.Catalog) (*Engine, error) {

	if err := scheme.Validate(); err != nil {
		return nil, err
	}
	if err := checkSchemeFits(scheme, pattern, reg); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg: cfg,
		log: logx.Nop(),
		days: cache.New[calendar.Date, schedule.Day](cache.Options{
			TTL: cfg.DayTTL, HighWater: cfg.DayHighWater, Now: cfg.Now,
		}),
		teamDays: cache.New[teamDayKey, TeamDay](cache.Options{
			TTL: cfg.DayTTL, HighWater: cfg.DayHighWater, Now: cfg.Now,
		}),
		regSnap: cache.New[uint64, []roster.Team](cache.Options{
			TTL: cfg.SnapshotTTL, HighWater: 4, Now: cfg.Now,
		}),
		catSnap: cache.New[uint64, []roster.ShiftType](cache.Options{
			TTL: cfg.SnapshotTTL, HighWater: 4, Now: cfg.Now,
		}),
	}
	e.snap.Store(&snapshot{version: 1, scheme: scheme, pattern: pattern, reg: reg, cat: cat})
	return e, nil
}

func (e *Engine) SetLogger(log logx.Logger) { e.log = log }

// SetBus installs the event bus the engine publishes configuration changes on.
func (e *Engine) SetBus(bus eventbus.Bus) { e.bus = bus }

// SetPersister installs the durability collaborator used by UpdateScheme.
func (e *Engine) SetPersister(p Persister) { e.persist = p }

// Scheme returns the active scheme.
func (e *Engine) Scheme() rotation.Scheme { return e.snap.Load().scheme }

// Version returns the configuration version; it increases on every
// UpdateScheme/Reload*.
func (e *Engine) Version() uint64 { return e.snap.Load().version }

// Teams returns the team snapshot for the active configuration, served from
// the registry snapshot cache.
func (e *Engine) Teams() []roster.Team {
	s := e.snap.Load()
	if teams, ok := e.regSnap.Get(s.version, s.version); ok {
		return teams
	}
	teams := s.reg.All()
	e.regSnap.Put(s.version, teams, s.version)
	return teams
}

// ShiftTypes returns the shift-type snapshot for the active configuration.
func (e *Engine) ShiftTypes() []roster.ShiftType {
	s := e.snap.Load()
	if shifts, ok := e.catSnap.Get(s.version, s.version); ok {
		return shifts
	}
	shifts := s.cat.All()
	e.catSnap.Put(s.version, shifts, s.version)
	return shifts
}

// UpdateScheme validates, swaps the configuration and invalidates the day
// caches atomically with respect to readers, then persists.
//
// Error classes:
//   - *rotation.ConfigError: rejected, nothing changed.
//   - wrapped ErrPersistFailed: swap done, durability failed; callers should
//     surface a warning but keep going.
func (e *Engine) UpdateScheme(ctx context.Context, scheme rotation.Scheme, pattern *rotation.Pattern) error {
	if err := scheme.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	cur := e.snap.Load()
	if err := checkSchemeFits(scheme, pattern, cur.reg); err != nil {
		e.mu.Unlock()
		return err
	}
	if scheme.Revision == "" {
		scheme.Revision = uuid.NewString()
	}
	next := &snapshot{
		version: cur.version + 1,
		scheme:  scheme,
		pattern: pattern,
		reg:     cur.reg,
		cat:     cur.cat,
	}
	e.snap.Store(next)
	// Every cached day implicitly depends on the scheme: partial
	// invalidation is unsafe, clear wholesale.
	e.days.Clear()
	e.teamDays.Clear()
	e.mu.Unlock()

	e.log.Info("scheme updated",
		logx.String("revision", scheme.Revision),
		logx.String("start", scheme.Start.String()),
		logx.Int("cycle_length", scheme.CycleLength),
		logx.Uint64("version", next.version),
	)
	e.publish(eventbus.EventSchemeUpdated, scheme.Revision)

	if e.persist == nil {
		return nil
	}
	if err := e.persist.SaveScheme(ctx, scheme, pattern); err != nil {
		e.log.Warn("scheme persistence failed", logx.Err(err), logx.String("revision", scheme.Revision))
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

// ReloadRegistry replaces the team registry and invalidates everything
// derived from it (day caches and the registry snapshot cache).
func (e *Engine) ReloadRegistry(teams []roster.Team) error {
	reg, err := roster.NewRegistry(teams)
	if err != nil {
		return err
	}

	e.mu.Lock()
	cur := e.snap.Load()
	if err := checkSchemeFits(cur.scheme, cur.pattern, reg); err != nil {
		e.mu.Unlock()
		return err
	}
	next := &snapshot{
		version: cur.version + 1,
		scheme:  cur.scheme,
		pattern: cur.pattern,
		reg:     reg,
		cat:     cur.cat,
	}
	e.snap.Store(next)
	e.days.Clear()
	e.teamDays.Clear()
	e.regSnap.Clear()
	e.mu.Unlock()

	e.log.Info("team registry reloaded", logx.Int("teams", reg.Len()), logx.Uint64("version", next.version))
	e.publish(eventbus.EventRosterReloaded, reg.Len())
	return nil
}

// ReloadCatalog replaces the shift catalog and invalidates derived caches.
func (e *Engine) ReloadCatalog(shifts []roster.ShiftType) error {
	cat, err := roster.NewCatalog(shifts)
	if err != nil {
		return err
	}

	e.mu.Lock()
	cur := e.snap.Load()
	next := &snapshot{
		version: cur.version + 1,
		scheme:  cur.scheme,
		pattern: cur.pattern,
		reg:     cur.reg,
		cat:     cat,
	}
	e.snap.Store(next)
	e.days.Clear()
	e.teamDays.Clear()
	e.catSnap.Clear()
	e.mu.Unlock()

	e.log.Info("shift catalog reloaded", logx.Int("shift_types", cat.Len()), logx.Uint64("version", next.version))
	e.publish(eventbus.EventCatalogReloaded, cat.Len())
	return nil
}

// SweepCaches eagerly drops expired cache entries; returns how many were
// removed. Called by maintenance (prefetch janitor), never required for
// correctness.
func (e *Engine) SweepCaches() int {
	return e.days.Sweep() + e.teamDays.Sweep() + e.regSnap.Sweep() + e.catSnap.Sweep()
}

// CachedDays reports the day-cache size (diagnostics).
func (e *Engine) CachedDays() int { return e.days.Len() }

func (e *Engine) publish(typ string, data any) {
	if e.bus != nil {
		e.bus.Publish(eventbus.Event{Type: typ, Data: data})
	}
}

// checkSchemeFits cross-validates scheme, pattern and registry: matching
// cycle lengths and no pattern reference to a team outside the registry.
func checkSchemeFits(scheme rotation.Scheme, pattern *rotation.Pattern, reg *roster.Registry) error {
	if pattern == nil {
		return &rotation.ConfigError{Field: "pattern", Reason: "missing"}
	}
	if pattern.CycleLength() != scheme.CycleLength {
		return &rotation.ConfigError{
			Field:  "pattern",
			Reason: fmt.Sprintf("cycle length %d does not match scheme %d", pattern.CycleLength(), scheme.CycleLength),
		}
	}
	for _, slot := range pattern.Slots() {
		for _, id := range slot.TeamIDs {
			if _, err := reg.ByID(id); err != nil {
				return &rotation.ConfigError{
					Field:  "pattern",
					Reason: fmt.Sprintf("position %d references unknown team %q", slot.CyclePosition, id),
				}
			}
		}
	}
	return nil
}
