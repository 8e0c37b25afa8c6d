package storage

import (
	"errors"
	"fmt"
	"time"

	"shiftcal/internal/calendar"
	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
)

var (
	ErrDisabled = errors.New("storage disabled")

	// ErrNotSeeded is returned by Load* when the backing store holds no data
	// yet. Callers typically fall back to the standard defaults and save them.
	ErrNotSeeded = errors.New("storage not seeded")
)

// Config configures storage.
//
// Driver values:
//   - "file": JSON snapshot + audit jsonl
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AuditEntry records one scheme update.
// Keep it compact and schema-stable.
type AuditEntry struct {
	At             time.Time
	Revision       string
	Action         string
	StartDate      string
	CycleLength    int
	PatternVersion int
	Fingerprint    uint64
	Note           string
}

// ---- wire documents ----
//
// These are the only serialized forms of the domain types; conversion happens
// here at the storage boundary and nowhere else.

type schemeDoc struct {
	StartDate      string    `json:"start_date"`
	CycleLength    int       `json:"cycle_length"`
	PatternVersion int       `json:"pattern_version"`
	Revision       string    `json:"revision,omitempty"`
	Slots          []slotDoc `json:"slots"`
}

type slotDoc struct {
	Position    int      `json:"position"`
	ShiftTypeID string   `json:"shift_type_id"`
	TeamIDs     []string `json:"team_ids"`
}

type teamDoc struct {
	ID    string `json:"id"`
	HalfA string `json:"half_a"`
	HalfB string `json:"half_b"`
}

type shiftTypeDoc struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	ColorHex        string `json:"color_hex,omitempty"`
}

func schemeToDoc(s rotation.Scheme, p *rotation.Pattern) schemeDoc {
	doc := schemeDoc{
		StartDate:      s.Start.String(),
		CycleLength:    s.CycleLength,
		PatternVersion: s.PatternVersion,
		Revision:       s.Revision,
	}
	for _, slot := range p.Slots() {
		doc.Slots = append(doc.Slots, slotDoc{
			Position:    slot.CyclePosition,
			ShiftTypeID: slot.ShiftTypeID,
			TeamIDs:     slot.TeamIDs,
		})
	}
	return doc
}

func schemeFromDoc(doc schemeDoc) (rotation.Scheme, *rotation.Pattern, error) {
	start, err := calendar.ParseDate(doc.StartDate)
	if err != nil {
		return rotation.Scheme{}, nil, fmt.Errorf("scheme start_date: %w", err)
	}
	s := rotation.Scheme{
		Start:          start,
		CycleLength:    doc.CycleLength,
		PatternVersion: doc.PatternVersion,
		Revision:       doc.Revision,
	}
	if err := s.Validate(); err != nil {
		return rotation.Scheme{}, nil, err
	}
	slots := make([]rotation.Slot, 0, len(doc.Slots))
	for _, sd := range doc.Slots {
		slots = append(slots, rotation.Slot{
			CyclePosition: sd.Position,
			ShiftTypeID:   sd.ShiftTypeID,
			TeamIDs:       sd.TeamIDs,
		})
	}
	p, err := rotation.NewPattern(doc.CycleLength, slots)
	if err != nil {
		return rotation.Scheme{}, nil, err
	}
	return s, p, nil
}

func teamToDoc(t roster.Team) teamDoc {
	return teamDoc{ID: t.ID, HalfA: t.HalfA.Name, HalfB: t.HalfB.Name}
}

func teamFromDoc(d teamDoc) roster.Team {
	return roster.Team{
		ID:    d.ID,
		HalfA: roster.HalfTeam{Name: d.HalfA},
		HalfB: roster.HalfTeam{Name: d.HalfB},
	}
}

func shiftTypeToDoc(s roster.ShiftType) shiftTypeDoc {
	return shiftTypeDoc{
		ID:              s.ID,
		Name:            s.Name,
		StartTime:       s.StartTime.String(),
		DurationMinutes: s.DurationMinutes,
		ColorHex:        s.ColorHex,
	}
}

func shiftTypeFromDoc(d shiftTypeDoc) (roster.ShiftType, error) {
	start, err := roster.ParseTimeOfDay(d.StartTime)
	if err != nil {
		return roster.ShiftType{}, fmt.Errorf("shift type %s: %w", d.ID, err)
	}
	return roster.ShiftType{
		ID:              d.ID,
		Name:            d.Name,
		StartTime:       start,
		DurationMinutes: d.DurationMinutes,
		ColorHex:        d.ColorHex,
	}, nil
}
