// Package rotation owns the scheme configuration and the repeating pattern
// table that maps cycle positions to shift assignments.
//
// All invariants are enforced when a pattern is built. After that the engine
// may assume any position lookup is consistent: positions are in range and no
// team is booked twice on the same day.
package rotation

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"shiftcal/internal/calendar"
)

// ConfigError is a fatal configuration problem: the scheme is unusable and
// must not be activated. It is reported synchronously from scheme load and
// UpdateScheme, never deferred to query time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + ": " + e.Reason
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Scheme defines the rotation: where the cycle is anchored and how long it is.
type Scheme struct {
	Start          calendar.Date
	CycleLength    int
	PatternVersion int

	// Revision identifies a persisted scheme update (assigned on save).
	Revision string
}

// Validate rejects schemes the engine cannot run on. Queries never re-check
// these; activation is the only gate.
func (s Scheme) Validate() error {
	if s.CycleLength < 1 {
		return configErrorf("cycle_length", "must be >= 1, got %d", s.CycleLength)
	}
	if err := calendar.CheckRange(s.Start); err != nil {
		return configErrorf("start_date", "%v", err)
	}
	return nil
}

// Slot is one row of the pattern table: at a given cycle position, the named
// shift is worked by the given set of teams.
type Slot struct {
	CyclePosition int
	ShiftTypeID   string
	TeamIDs       []string
}

// Pattern is the full rotation table, indexed by cycle position.
type Pattern struct {
	cycleLength int
	byPos       [][]Slot
	fingerprint uint64
}

// NewPattern validates and indexes slots.
//
// Fatal conditions (the pattern is rejected, not degraded):
//   - a position outside [0, cycleLength)
//   - a slot with no shift type or no teams
//   - the same shift type occurring twice at one position
//   - a team assigned to two slots at the same position (double booking)
func NewPattern(cycleLength int, slots []Slot) (*Pattern, error) {
	if cycleLength < 1 {
		return nil, configErrorf("cycle_length", "must be >= 1, got %d", cycleLength)
	}
	p := &Pattern{
		cycleLength: cycleLength,
		byPos:       make([][]Slot, cycleLength),
	}
	for _, s := range slots {
		if s.CyclePosition < 0 || s.CyclePosition >= cycleLength {
			return nil, configErrorf("pattern", "slot position %d outside [0, %d)", s.CyclePosition, cycleLength)
		}
		if s.ShiftTypeID == "" {
			return nil, configErrorf("pattern", "slot at position %d has no shift type", s.CyclePosition)
		}
		if len(s.TeamIDs) == 0 {
			return nil, configErrorf("pattern", "slot %s at position %d has no teams", s.ShiftTypeID, s.CyclePosition)
		}
		cp := s
		cp.TeamIDs = dedupSorted(s.TeamIDs)
		p.byPos[cp.CyclePosition] = append(p.byPos[cp.CyclePosition], cp)
	}
	for pos, rows := range p.byPos {
		seenShift := make(map[string]bool, len(rows))
		seenTeam := make(map[string]string, len(rows)*2)
		for _, s := range rows {
			if seenShift[s.ShiftTypeID] {
				return nil, configErrorf("pattern", "shift %s appears twice at position %d", s.ShiftTypeID, pos)
			}
			seenShift[s.ShiftTypeID] = true
			for _, id := range s.TeamIDs {
				if other, booked := seenTeam[id]; booked {
					return nil, configErrorf("pattern",
						"team %s double-booked at position %d (shifts %s and %s)", id, pos, other, s.ShiftTypeID)
				}
				seenTeam[id] = s.ShiftTypeID
			}
		}
		// stable slot order within a position
		sort.Slice(rows, func(i, j int) bool { return rows[i].ShiftTypeID < rows[j].ShiftTypeID })
	}
	p.fingerprint = p.computeFingerprint()
	return p, nil
}

// CycleLength returns the pattern period in days.
func (p *Pattern) CycleLength() int { return p.cycleLength }

// SlotsFor returns the slots at one cycle position. The returned slice is
// shared; callers must not mutate it.
func (p *Pattern) SlotsFor(pos int) []Slot {
	if pos < 0 || pos >= p.cycleLength {
		return nil
	}
	return p.byPos[pos]
}

// Slots returns all slots in (position, shift) order.
func (p *Pattern) Slots() []Slot {
	var out []Slot
	for _, rows := range p.byPos {
		out = append(out, rows...)
	}
	return out
}

// TeamAssignments returns how many working positions the team has per cycle.
// Zero means the team never works under this pattern.
func (p *Pattern) TeamAssignments(teamID string) int {
	n := 0
	for _, rows := range p.byPos {
		for _, s := range rows {
			for _, id := range s.TeamIDs {
				if id == teamID {
					n++
				}
			}
		}
	}
	return n
}

// Fingerprint is a stable content hash of the table. Two patterns with the
// same slots (in any input order) hash equal; used for change detection.
func (p *Pattern) Fingerprint() uint64 { return p.fingerprint }

func (p *Pattern) computeFingerprint() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(strconv.Itoa(p.cycleLength))
	for pos, rows := range p.byPos {
		for _, s := range rows {
			_, _ = h.WriteString("\x00" + strconv.Itoa(pos) + "\x01" + s.ShiftTypeID)
			for _, id := range s.TeamIDs {
				_, _ = h.WriteString("\x02" + id)
			}
		}
	}
	return h.Sum64()
}

func dedupSorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	j := 0
	for i, v := range out {
		if i == 0 || v != out[j-1] {
			out[j] = v
			j++
		}
	}
	return out[:j]
}
