package rotation

import (
	"shiftcal/internal/calendar"
	"shiftcal/internal/roster"
)

// Standard layout constants: the classic industrial 4-on/2-off rotation.
// Nine teams cycle through an 18-day period; each team works three 4-day
// blocks (morning, evening, night) separated by 2-day rests. On any day two
// teams cover each of the three shifts and three teams rest.
const (
	StandardCycleLength = 18
	StandardTeamCount   = 9
	standardTeamSpacing = 2
)

// standardTemplate is one team's 18-day schedule relative to its own offset:
// 4x morning, 2 off, 4x evening, 2 off, 4x night, 2 off.
var standardTemplate = [StandardCycleLength]string{
	roster.ShiftMorning, roster.ShiftMorning, roster.ShiftMorning, roster.ShiftMorning, "", "",
	roster.ShiftEvening, roster.ShiftEvening, roster.ShiftEvening, roster.ShiftEvening, "", "",
	roster.ShiftNight, roster.ShiftNight, roster.ShiftNight, roster.ShiftNight, "", "",
}

// StandardPattern builds the conventional 4-on/2-off table for the given
// teams. Team i is offset i*2 days into the cycle, so coverage stays level
// across the period. Requires exactly StandardTeamCount teams.
func StandardPattern(teamIDs []string) (*Pattern, error) {
	if len(teamIDs) != StandardTeamCount {
		return nil, configErrorf("pattern", "standard layout needs %d teams, got %d", StandardTeamCount, len(teamIDs))
	}
	var slots []Slot
	for pos := 0; pos < StandardCycleLength; pos++ {
		byShift := map[string][]string{}
		for i, id := range teamIDs {
			r := calendar.FloorMod(pos-i*standardTeamSpacing, StandardCycleLength)
			if shift := standardTemplate[r]; shift != "" {
				byShift[shift] = append(byShift[shift], id)
			}
		}
		for _, shift := range []string{roster.ShiftMorning, roster.ShiftEvening, roster.ShiftNight} {
			if teams := byShift[shift]; len(teams) > 0 {
				slots = append(slots, Slot{CyclePosition: pos, ShiftTypeID: shift, TeamIDs: teams})
			}
		}
	}
	return NewPattern(StandardCycleLength, slots)
}
