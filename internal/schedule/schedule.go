// Package schedule turns a date plus the rotation configuration into the
// concrete day aggregate: which teams work which shifts, which teams rest.
//
// Generate is pure. Given the same four inputs it always produces the same
// Day, which is what makes the engine's cache safe to race on: a redundant
// recomputation overwrites an entry with an equal value.
package schedule

import (
	"fmt"
	"sort"

	"shiftcal/internal/calendar"
	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
)

// Shift is one concrete shift instance on a specific date.
type Shift struct {
	Type  roster.ShiftType
	Teams []roster.Team // sorted by team id
	Date  calendar.Date
}

// HasTeam reports whether the team works this shift.
func (s Shift) HasTeam(teamID string) bool {
	for _, t := range s.Teams {
		if t.ID == teamID {
			return true
		}
	}
	return false
}

// Day is the schedule aggregate for one date. Immutable once built;
// restingTeams is always the exact complement of the working teams over the
// full registry.
type Day struct {
	Date    calendar.Date
	Shifts  []Shift
	Resting []roster.Team // sorted by team id
}

// ShiftFor returns the shift the team works on this day, if any.
func (d Day) ShiftFor(teamID string) (Shift, bool) {
	for _, s := range d.Shifts {
		if s.HasTeam(teamID) {
			return s, true
		}
	}
	return Shift{}, false
}

// IsWorking reports whether the team works any shift on this day.
func (d Day) IsWorking(teamID string) bool {
	_, ok := d.ShiftFor(teamID)
	return ok
}

// WorkingTeams returns the union of all shift teams, sorted by id.
func (d Day) WorkingTeams() []roster.Team {
	var out []roster.Team
	for _, s := range d.Shifts {
		out = append(out, s.Teams...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SameAssignments reports whether two days carry identical shift/team
// assignments, ignoring the date itself. Used to verify periodicity.
func (d Day) SameAssignments(other Day) bool {
	if len(d.Shifts) != len(other.Shifts) || len(d.Resting) != len(other.Resting) {
		return false
	}
	for i, s := range d.Shifts {
		o := other.Shifts[i]
		if s.Type.ID != o.Type.ID || len(s.Teams) != len(o.Teams) {
			return false
		}
		for j, tm := range s.Teams {
			if tm.ID != o.Teams[j].ID {
				return false
			}
		}
	}
	for i, tm := range d.Resting {
		if tm.ID != other.Resting[i].ID {
			return false
		}
	}
	return true
}

// Generate computes the Day for date. No caching, no I/O.
//
// Unknown shift or team ids in the pattern surface as wrapped
// roster.ErrNotFound; the caller decides whether that is a stale reference
// (recompute after reload) or a broken configuration.
func Generate(date calendar.Date, scheme rotation.Scheme, pattern *rotation.Pattern,
	reg *roster.Registry, cat *roster.Catalog) (Day, error) {

	if err := calendar.CheckRange(date); err != nil {
		return Day{}, err
	}

	pos := calendar.CyclePosition(date, scheme.Start, scheme.CycleLength)

	day := Day{Date: date}
	working := make(map[string]bool)
	for _, slot := range pattern.SlotsFor(pos) {
		st, err := cat.ByID(slot.ShiftTypeID)
		if err != nil {
			return Day{}, fmt.Errorf("position %d: %w", pos, err)
		}
		sh := Shift{Type: st, Date: date, Teams: make([]roster.Team, 0, len(slot.TeamIDs))}
		for _, id := range slot.TeamIDs {
			tm, err := reg.ByID(id)
			if err != nil {
				return Day{}, fmt.Errorf("position %d shift %s: %w", pos, slot.ShiftTypeID, err)
			}
			sh.Teams = append(sh.Teams, tm)
			working[id] = true
		}
		sort.Slice(sh.Teams, func(i, j int) bool { return sh.Teams[i].ID < sh.Teams[j].ID })
		day.Shifts = append(day.Shifts, sh)
	}

	for _, tm := range reg.All() {
		if !working[tm.ID] {
			day.Resting = append(day.Resting, tm)
		}
	}
	sort.Slice(day.Resting, func(i, j int) bool { return day.Resting[i].ID < day.Resting[j].ID })

	return day, nil
}
