package roster

import (
	"errors"
	"testing"
)

func TestNewRegistryRejectsSharedHalf(t *testing.T) {
	t.Parallel()
	_, err := NewRegistry([]Team{
		{ID: "A", HalfA: HalfTeam{Name: "A1"}, HalfB: HalfTeam{Name: "A2"}},
		{ID: "B", HalfA: HalfTeam{Name: "A2"}, HalfB: HalfTeam{Name: "B2"}},
	})
	if err == nil {
		t.Fatal("expected error for half-team assigned to two teams")
	}
}

func TestNewRegistryRejectsIdenticalHalves(t *testing.T) {
	t.Parallel()
	_, err := NewRegistry([]Team{
		{ID: "A", HalfA: HalfTeam{Name: "A1"}, HalfB: HalfTeam{Name: "A1"}},
	})
	if err == nil {
		t.Fatal("expected error for identical halves")
	}
}

func TestNewRegistryRejectsEmpty(t *testing.T) {
	t.Parallel()
	if _, err := NewRegistry(nil); !errors.Is(err, ErrEmptyRegistry) {
		t.Fatalf("err = %v, want ErrEmptyRegistry", err)
	}
}

func TestRegistryLookups(t *testing.T) {
	t.Parallel()
	teams, err := StandardTeams(9)
	if err != nil {
		t.Fatalf("StandardTeams: %v", err)
	}
	r, err := NewRegistry(teams)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	got, err := r.ByID("C")
	if err != nil {
		t.Fatalf("ByID(C): %v", err)
	}
	if got.HalfA.Name != "C1" || got.HalfB.Name != "C2" {
		t.Fatalf("ByID(C) halves = %s/%s", got.HalfA.Name, got.HalfB.Name)
	}

	if _, err := r.ByID("Z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ByID(Z) err = %v, want ErrNotFound", err)
	}
	if _, err := r.ByName("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ByName err = %v, want ErrNotFound", err)
	}

	byHalf, err := r.ByHalf("I2")
	if err != nil {
		t.Fatalf("ByHalf(I2): %v", err)
	}
	if byHalf.ID != "I" {
		t.Fatalf("ByHalf(I2) = %s, want I", byHalf.ID)
	}

	if r.Len() != 9 {
		t.Fatalf("Len = %d, want 9", r.Len())
	}
	all := r.All()
	if len(all) != 9 || all[0].ID != "A" || all[8].ID != "I" {
		t.Fatalf("All() order wrong: first=%s last=%s", all[0].ID, all[len(all)-1].ID)
	}
}

func TestStandardTeamsBounds(t *testing.T) {
	t.Parallel()
	if _, err := StandardTeams(0); err == nil {
		t.Fatal("expected error for 0 teams")
	}
	if _, err := StandardTeams(27); err == nil {
		t.Fatal("expected error for 27 teams")
	}
}

func TestTeamIdentityUnordered(t *testing.T) {
	t.Parallel()
	a := Team{ID: "A", HalfA: HalfTeam{Name: "A1"}, HalfB: HalfTeam{Name: "A2"}}
	b := Team{ID: "X", HalfA: HalfTeam{Name: "A2"}, HalfB: HalfTeam{Name: "A1"}}
	if !a.SameIdentity(b) {
		t.Fatal("expected same identity for swapped halves")
	}
}

func TestCatalogLookupsAndValidation(t *testing.T) {
	t.Parallel()
	c, err := NewCatalog(StandardShiftTypes())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	night, err := c.ByID(ShiftNight)
	if err != nil {
		t.Fatalf("ByID(night): %v", err)
	}
	if !night.CrossesMidnight() {
		t.Fatal("night shift should cross midnight")
	}
	morning, err := c.ByName("Morning")
	if err != nil {
		t.Fatalf("ByName(Morning): %v", err)
	}
	if morning.CrossesMidnight() {
		t.Fatal("morning shift should not cross midnight")
	}
	if _, err := c.ByID("siesta"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ByID err = %v, want ErrNotFound", err)
	}

	if got := night.EndTime(); got != (TimeOfDay{Hour: 6}) {
		t.Fatalf("night end = %v, want 06:00", got)
	}
	if got := morning.EndTime(); got != (TimeOfDay{Hour: 14}) {
		t.Fatalf("morning end = %v, want 14:00", got)
	}

	if _, err := NewCatalog([]ShiftType{{ID: "x", Name: "X", DurationMinutes: 0}}); err == nil {
		t.Fatal("expected error for zero duration")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	t.Parallel()
	tod, err := ParseTimeOfDay("22:00")
	if err != nil {
		t.Fatalf("ParseTimeOfDay: %v", err)
	}
	if tod.Hour != 22 || tod.Minute != 0 {
		t.Fatalf("got %v", tod)
	}
	if _, err := ParseTimeOfDay("24:00"); err == nil {
		t.Fatal("expected error for 24:00")
	}
}
