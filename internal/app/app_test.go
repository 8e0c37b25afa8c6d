package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shiftcal/internal/calendar"
	"shiftcal/internal/config"
	"shiftcal/internal/rotation"
	"shiftcal/internal/storage"
	logx "shiftcal/pkg/logx"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func standardSchemeConfig() config.SchemeConfig {
	return config.SchemeConfig{
		StartDate:   "2018-11-07",
		CycleLength: rotation.StandardCycleLength,
		TeamCount:   rotation.StandardTeamCount,
	}
}

func TestBuildFromConfigStandard(t *testing.T) {
	t.Parallel()

	data, err := buildFromConfig(standardSchemeConfig())
	if err != nil {
		t.Fatalf("buildFromConfig: %v", err)
	}
	if data.reg.Len() != rotation.StandardTeamCount {
		t.Fatalf("teams = %d", data.reg.Len())
	}
	if data.pattern.CycleLength() != rotation.StandardCycleLength {
		t.Fatalf("cycle = %d", data.pattern.CycleLength())
	}
	if data.scheme.Revision == "" {
		t.Fatal("revision should be assigned")
	}
	if got := data.scheme.Start; got != calendar.NewDate(2018, time.November, 7) {
		t.Fatalf("start = %v", got)
	}
}

func TestBuildFromConfigRejections(t *testing.T) {
	t.Parallel()

	cases := map[string]config.SchemeConfig{
		"bad start date": {StartDate: "07.11.2018", CycleLength: 18},
		"custom cycle without slots": {StartDate: "2018-11-07", CycleLength: 21},
		"too many teams": {StartDate: "2018-11-07", CycleLength: 18, TeamCount: 40},
		"double booking": {
			StartDate:   "2018-11-07",
			CycleLength: 4,
			Slots: []config.SchemeSlot{
				{Position: 0, ShiftTypeID: "morning", TeamIDs: []string{"A"}},
				{Position: 0, ShiftTypeID: "night", TeamIDs: []string{"A"}},
			},
		},
	}
	for name, sc := range cases {
		sc := sc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := buildFromConfig(sc); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuildFromConfigCustomSlots(t *testing.T) {
	t.Parallel()

	sc := config.SchemeConfig{
		StartDate:   "2024-01-01",
		CycleLength: 4,
		TeamCount:   2,
		Slots: []config.SchemeSlot{
			{Position: 0, ShiftTypeID: "morning", TeamIDs: []string{"A"}},
			{Position: 1, ShiftTypeID: "morning", TeamIDs: []string{"B"}},
		},
	}
	data, err := buildFromConfig(sc)
	if err != nil {
		t.Fatalf("buildFromConfig: %v", err)
	}
	if data.pattern.CycleLength() != 4 {
		t.Fatalf("cycle = %d", data.pattern.CycleLength())
	}
}

func TestLoadOrSeedWithoutStore(t *testing.T) {
	t.Parallel()

	data, err := loadOrSeed(context.Background(), nil, standardSchemeConfig(), logx.Nop())
	if err != nil {
		t.Fatalf("loadOrSeed: %v", err)
	}
	if data.reg.Len() != rotation.StandardTeamCount {
		t.Fatalf("teams = %d", data.reg.Len())
	}
}

func TestLoadOrSeedSeedsEmptyStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := storage.Open(storage.Config{Driver: "file", Path: filepath.Join(dir, "store")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	seeded, err := loadOrSeed(context.Background(), st, standardSchemeConfig(), logx.Nop())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Second call must load the stored scheme, not reseed.
	loaded, err := loadOrSeed(context.Background(), st, standardSchemeConfig(), logx.Nop())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.scheme != seeded.scheme {
		t.Fatalf("loaded scheme %+v, want %+v", loaded.scheme, seeded.scheme)
	}
	if loaded.pattern.Fingerprint() != seeded.pattern.Fingerprint() {
		t.Fatal("pattern fingerprint changed across load")
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store")
	cfgPath := writeConfig(t, dir, `{
  "logging": {"level": "error", "console": false},
  "storage": {"driver": "file", "path": "`+storePath+`"},
  "prefetch": {"enabled": false},
  "scheme": {"start_date": "2018-11-07", "cycle_length": 18, "team_count": 9}
}`)
	a, err := NewApp(cfgPath)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return a
}

func TestAppStartQueryStop(t *testing.T) {
	t.Parallel()

	a := newTestApp(t)
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	day, err := a.Engine().ScheduleForDate(calendar.NewDate(2024, time.March, 15))
	if err != nil {
		t.Fatalf("ScheduleForDate: %v", err)
	}
	if len(day.Shifts) != 3 || len(day.Resting) != 3 {
		t.Fatalf("day = %d shifts, %d resting", len(day.Shifts), len(day.Resting))
	}

	if err := a.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("Done should be closed after Stop")
	}
	if err := a.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
}

func TestAppRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeConfig(t, t.TempDir(), `{
  "scheme": {"start_date": "2018-11-07", "cycle_length": 21, "team_count": 9}
}`)
	if _, err := NewApp(cfgPath); err == nil {
		t.Fatal("custom cycle without slots should fail")
	}
}

func TestSupervisorCancelOnError(t *testing.T) {
	t.Parallel()

	sup := NewSupervisor(context.Background(), WithCancelOnError(true))
	boom := errors.New("boom")
	sup.Go("failing", func(ctx context.Context) error { return boom })

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sup.Wait(waitCtx); !errors.Is(err, boom) {
		t.Fatalf("Wait = %v, want boom", err)
	}
	select {
	case <-sup.Context().Done():
	default:
		t.Fatal("context should be canceled after error")
	}
}

func TestSupervisorRecoversPanic(t *testing.T) {
	t.Parallel()

	sup := NewSupervisor(context.Background(), WithCancelOnError(true))
	sup.Go0("panicking", func(ctx context.Context) { panic("boom") })

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sup.Wait(waitCtx); err == nil {
		t.Fatal("expected panic to surface as error")
	}
}
