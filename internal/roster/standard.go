package roster

import "fmt"

// Standard shift type ids used by StandardShiftTypes and the conventional
// rotation layout.
const (
	ShiftMorning = "morning"
	ShiftEvening = "evening"
	ShiftNight   = "night"
)

// StandardTeams generates the conventional n-team layout: teams named by
// consecutive letters starting at "A", each formed by pairing two adjacent
// half-team slots ("A1"+"A2", "B1"+"B2", ...).
//
// n is a configuration parameter, not a fixed constant; 1 <= n <= 26.
func StandardTeams(n int) ([]Team, error) {
	if n < 1 || n > 26 {
		return nil, fmt.Errorf("standard team count must be in 1..26, got %d", n)
	}
	teams := make([]Team, 0, n)
	for i := 0; i < n; i++ {
		letter := string(rune('A' + i))
		teams = append(teams, Team{
			ID:    letter,
			HalfA: HalfTeam{Name: letter + "1"},
			HalfB: HalfTeam{Name: letter + "2"},
		})
	}
	return teams, nil
}

// StandardShiftTypes generates the conventional three-shift day:
// morning, evening and a night shift whose window crosses midnight.
func StandardShiftTypes() []ShiftType {
	return []ShiftType{
		{
			ID:              ShiftMorning,
			Name:            "Morning",
			StartTime:       TimeOfDay{Hour: 6},
			DurationMinutes: 8 * 60,
			ColorHex:        "#4CAF50",
		},
		{
			ID:              ShiftEvening,
			Name:            "Evening",
			StartTime:       TimeOfDay{Hour: 14},
			DurationMinutes: 8 * 60,
			ColorHex:        "#FF9800",
		},
		{
			ID:              ShiftNight,
			Name:            "Night",
			StartTime:       TimeOfDay{Hour: 22},
			DurationMinutes: 8 * 60,
			ColorHex:        "#3F51B5",
		},
	}
}
