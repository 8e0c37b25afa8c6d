package roster

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by lookups on unknown ids/names. Callers are
	// expected to branch on it (stale ids after a scheme change are a normal
	// condition, not a crash).
	ErrNotFound = errors.New("not found")

	ErrEmptyRegistry = errors.New("registry is empty")
)

// HalfTeam is the smallest named rotation unit. Two half-teams form a Team.
type HalfTeam struct {
	Name string
}

// Team is an unordered pair of distinct half-teams.
type Team struct {
	ID    string
	HalfA HalfTeam
	HalfB HalfTeam
}

// Name is the display name, derived from the halves ("A1/A2" style halves
// collapse to the shared letter when they follow the standard convention).
func (t Team) Name() string {
	if t.ID != "" {
		return t.ID
	}
	return t.HalfA.Name + "+" + t.HalfB.Name
}

// Has reports whether the named half-team belongs to t.
func (t Team) Has(half string) bool {
	return t.HalfA.Name == half || t.HalfB.Name == half
}

// SameIdentity reports whether two teams are the same unordered pair of halves.
func (t Team) SameIdentity(other Team) bool {
	if t.HalfA == other.HalfA && t.HalfB == other.HalfB {
		return true
	}
	return t.HalfA == other.HalfB && t.HalfB == other.HalfA
}

func (t Team) validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("team id is required")
	}
	if strings.TrimSpace(t.HalfA.Name) == "" || strings.TrimSpace(t.HalfB.Name) == "" {
		return fmt.Errorf("team %s: both half-team names are required", t.ID)
	}
	if t.HalfA.Name == t.HalfB.Name {
		return fmt.Errorf("team %s: half-teams must differ (got %q twice)", t.ID, t.HalfA.Name)
	}
	return nil
}

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	tod := TimeOfDay{Hour: h, Minute: m}
	if !tod.valid() {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	return tod, nil
}

// ShiftType defines one kind of shift (time window + display metadata).
//
// The window is start + duration; duration may carry past midnight, which
// avoids end-before-start ambiguity for night shifts.
type ShiftType struct {
	ID              string
	Name            string
	StartTime       TimeOfDay
	DurationMinutes int
	ColorHex        string
}

// Duration returns the shift length.
func (s ShiftType) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// EndTime returns the wall-clock end of the window, wrapping past midnight.
func (s ShiftType) EndTime() TimeOfDay {
	endMin := (s.StartTime.Hour*60 + s.StartTime.Minute + s.DurationMinutes) % (24 * 60)
	return TimeOfDay{Hour: endMin / 60, Minute: endMin % 60}
}

// CrossesMidnight reports whether the window ends on the following day.
func (s ShiftType) CrossesMidnight() bool {
	endMin := s.StartTime.Hour*60 + s.StartTime.Minute + s.DurationMinutes
	return endMin > 24*60
}

func (s ShiftType) validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("shift type id is required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("shift type %s: name is required", s.ID)
	}
	if !s.StartTime.valid() {
		return fmt.Errorf("shift type %s: invalid start time %s", s.ID, s.StartTime)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("shift type %s: duration must be positive (got %d)", s.ID, s.DurationMinutes)
	}
	return nil
}
