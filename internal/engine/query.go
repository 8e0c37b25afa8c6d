package engine

import (
	"fmt"
	"strconv"

	"shiftcal/internal/calendar"
	"shiftcal/internal/roster"
	"shiftcal/internal/schedule"
)

// TeamDay is the per-team projection of one schedule day: the one shift the
// team works (if any) instead of the whole board.
type TeamDay struct {
	Date    calendar.Date
	Team    roster.Team
	Shift   *schedule.Shift // nil on rest days
	Resting bool
}

// ScheduleForDate returns the full day aggregate, cache-through.
func (e *Engine) ScheduleForDate(date calendar.Date) (schedule.Day, error) {
	s := e.snap.Load()
	if day, ok := e.days.Get(date, s.version); ok {
		return day, nil
	}

	// Coalesce concurrent misses for the same (date, version). Racing anyway
	// would be correct (Generate is pure), just wasted work.
	key := date.String() + "@" + strconv.FormatUint(s.version, 10)
	v, err, _ := e.flight.Do(key, func() (any, error) {
		day, err := schedule.Generate(date, s.scheme, s.pattern, s.reg, s.cat)
		if err != nil {
			return schedule.Day{}, err
		}
		e.days.Put(date, day, s.version)
		return day, nil
	})
	if err != nil {
		return schedule.Day{}, err
	}
	return v.(schedule.Day), nil
}

// ScheduleForRange returns one Day per date in [start, end], inclusive.
// Each day is an independent cache-through read: O(n) lookups for n days.
func (e *Engine) ScheduleForRange(start, end calendar.Date) (map[calendar.Date]schedule.Day, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("range end %s before start %s", end, start)
	}
	if err := calendar.CheckRange(start); err != nil {
		return nil, err
	}
	if err := calendar.CheckRange(end); err != nil {
		return nil, err
	}

	out := make(map[calendar.Date]schedule.Day, calendar.DaysBetween(start, end)+1)
	for d := start; !d.After(end); d = d.AddDays(1) {
		day, err := e.ScheduleForDate(d)
		if err != nil {
			return nil, err
		}
		out[d] = day
	}
	return out, nil
}

// ScheduleForTeam returns the team's view of one date. The projection is
// cached under its own (date, team) key but derives from the shared day
// computation, so a cold team read costs one generation, not two.
func (e *Engine) ScheduleForTeam(date calendar.Date, teamID string) (TeamDay, error) {
	s := e.snap.Load()
	key := teamDayKey{date: date, teamID: teamID}
	if td, ok := e.teamDays.Get(key, s.version); ok {
		// Re-resolve the id: a registry reload may have dropped the team
		// while the projection was cached. Stale reference -> recompute.
		if _, err := s.reg.ByID(td.Team.ID); err == nil {
			return td, nil
		}
	}

	team, err := s.reg.ByID(teamID)
	if err != nil {
		return TeamDay{}, err
	}
	day, err := e.ScheduleForDate(date)
	if err != nil {
		return TeamDay{}, err
	}

	td := TeamDay{Date: date, Team: team, Resting: true}
	if sh, ok := day.ShiftFor(teamID); ok {
		td.Shift = &sh
		td.Resting = false
	}
	e.teamDays.Put(key, td, s.version)
	return td, nil
}

// IsWorkingDay reports whether the team works any shift on date.
func (e *Engine) IsWorkingDay(date calendar.Date, teamID string) (bool, error) {
	td, err := e.ScheduleForTeam(date, teamID)
	if err != nil {
		return false, err
	}
	return !td.Resting, nil
}

// IsRestingDay is the exact complement of IsWorkingDay.
func (e *Engine) IsRestingDay(date calendar.Date, teamID string) (bool, error) {
	working, err := e.IsWorkingDay(date, teamID)
	if err != nil {
		return false, err
	}
	return !working, nil
}

// TeamsWorkingOn returns all teams assigned to any shift on date.
func (e *Engine) TeamsWorkingOn(date calendar.Date) ([]roster.Team, error) {
	day, err := e.ScheduleForDate(date)
	if err != nil {
		return nil, err
	}
	return day.WorkingTeams(), nil
}

// NextWorkingDay returns the first date strictly after from on which the
// team works. The scan is bounded by one full cycle: the pattern is
// periodic, so a team idle for cycleLength consecutive days never works
// under the current scheme and the scan returns ErrNotFound instead of
// walking forever.
func (e *Engine) NextWorkingDay(teamID string, from calendar.Date) (calendar.Date, error) {
	return e.scanWorkingDay(teamID, from, 1)
}

// PreviousWorkingDay returns the last date strictly before from on which the
// team works, with the same cycle-bounded guarantee.
func (e *Engine) PreviousWorkingDay(teamID string, from calendar.Date) (calendar.Date, error) {
	return e.scanWorkingDay(teamID, from, -1)
}

func (e *Engine) scanWorkingDay(teamID string, from calendar.Date, step int) (calendar.Date, error) {
	s := e.snap.Load()
	if _, err := s.reg.ByID(teamID); err != nil {
		return calendar.Date{}, err
	}
	if err := calendar.CheckRange(from); err != nil {
		return calendar.Date{}, err
	}

	d := from
	for i := 0; i < s.scheme.CycleLength; i++ {
		d = d.AddDays(step)
		working, err := e.IsWorkingDay(d, teamID)
		if err != nil {
			return calendar.Date{}, err
		}
		if working {
			return d, nil
		}
	}
	return calendar.Date{}, fmt.Errorf("team %q has no working day within one cycle of %s: %w", teamID, from, ErrNotFound)
}

// WorkingDaysCount counts the team's working days in [start, end], inclusive.
func (e *Engine) WorkingDaysCount(teamID string, start, end calendar.Date) (int, error) {
	return e.countDays(teamID, start, end, true)
}

// RestingDaysCount counts the team's resting days in [start, end], inclusive.
// WorkingDaysCount + RestingDaysCount always equals the range length.
func (e *Engine) RestingDaysCount(teamID string, start, end calendar.Date) (int, error) {
	return e.countDays(teamID, start, end, false)
}

func (e *Engine) countDays(teamID string, start, end calendar.Date, working bool) (int, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("range end %s before start %s", end, start)
	}
	n := 0
	for d := start; !d.After(end); d = d.AddDays(1) {
		w, err := e.IsWorkingDay(d, teamID)
		if err != nil {
			return 0, err
		}
		if w == working {
			n++
		}
	}
	return n, nil
}
