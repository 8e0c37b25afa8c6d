package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const minimalJSON = `{
  "logging": {"level": "debug", "console": true},
  "scheme": {"start_date": "2018-11-07", "cycle_length": 18, "team_count": 9}
}`

func TestParseJSON(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", minimalJSON))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Scheme.CycleLength != 18 || cfg.Scheme.TeamCount != 9 {
		t.Fatalf("scheme = %+v", cfg.Scheme)
	}
	if cfg.Storage != nil {
		t.Fatalf("storage should be nil when omitted")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()

	yml := `
logging:
  level: info
  console: true
storage:
  driver: file
  path: ./store
cache:
  day_ttl: 12h
  day_high_water: 500
scheme:
  start_date: "2018-11-07"
  cycle_length: 18
  team_count: 9
`
	m := NewManager(writeFile(t, "config.yaml", yml))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Cache.DayTTL != "12h" || cfg.Cache.DayHighWater != 500 {
		t.Fatalf("cache = %+v", cfg.Cache)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", `{
  "scheme": {"start_date": "2018-11-07", "cycle_length": 18},
  "telemetry": {"enabled": true}
}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", minimalJSON+`{"extra": 1}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestParseRejectsInvalidScheme(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"missing start date": `{"scheme": {"start_date": "", "cycle_length": 18}}`,
		"zero cycle length":  `{"scheme": {"start_date": "2018-11-07", "cycle_length": 0}}`,
		"bad cache duration": `{"cache": {"day_ttl": "yesterday"}, "scheme": {"start_date": "2018-11-07", "cycle_length": 18}}`,
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := NewManager(writeFile(t, "config.json", body))
			if _, err := m.Parse(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadCommitsAndGet(t *testing.T) {
	t.Parallel()

	m := NewManager(writeFile(t, "config.json", minimalJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
	if m.lastHash == 0 {
		t.Fatal("lastHash should be set after Load")
	}
}

func TestHashConfigStable(t *testing.T) {
	t.Parallel()

	a := &Config{Scheme: SchemeConfig{StartDate: "2018-11-07", CycleLength: 18}}
	b := &Config{Scheme: SchemeConfig{StartDate: "2018-11-07", CycleLength: 18}}
	if hashConfig(a) != hashConfig(b) {
		t.Fatal("equal configs should hash equal")
	}
	b.Scheme.CycleLength = 21
	if hashConfig(a) == hashConfig(b) {
		t.Fatal("different configs should hash differently")
	}
	if hashConfig(nil) != 0 {
		t.Fatal("nil config should hash to 0")
	}
}

func TestPublishDropsOldestWhenSlow(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	first := &Config{Scheme: SchemeConfig{CycleLength: 1}}
	second := &Config{Scheme: SchemeConfig{CycleLength: 2}}
	m.publish(first)
	m.publish(second)

	select {
	case got := <-ch:
		if got != second {
			t.Fatalf("got cycle %d, want latest", got.Scheme.CycleLength)
		}
	default:
		t.Fatal("expected a buffered config")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()

	m := NewManager("unused")
	ch := m.Subscribe(1)
	m.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	// double unsubscribe is a no-op
	m.Unsubscribe(ch)
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationField("x", "  "); err != nil || d != 0 {
		t.Fatalf("blank: d=%v err=%v", d, err)
	}
	if d, err := ParseDurationField("x", "90s"); err != nil || d != 90*time.Second {
		t.Fatalf("90s: d=%v err=%v", d, err)
	}
	if _, err := ParseDurationField("x", "-1s"); err == nil {
		t.Fatal("negative duration should be rejected")
	}
	if d, err := ParseDurationOrDefault("x", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("default: d=%v err=%v", d, err)
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()

	oldCfg := &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Scheme:  SchemeConfig{StartDate: "2018-11-07", CycleLength: 18, TeamCount: 9},
	}
	newCfg := &Config{
		Logging:  LoggingConfig{Level: "debug", Console: true},
		Prefetch: PrefetchConfig{Enabled: true, WarmDays: 30},
		Scheme:   SchemeConfig{StartDate: "2018-11-07", CycleLength: 18, TeamCount: 9},
	}
	changed, attrs := SummarizeChange(oldCfg, newCfg)
	want := []string{"logging", "prefetch"}
	if len(changed) != len(want) {
		t.Fatalf("changed = %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Fatalf("changed = %v, want %v", changed, want)
		}
	}
	if len(attrs) == 0 {
		t.Fatal("expected log attrs for changed sections")
	}

	if c, _ := SummarizeChange(newCfg, newCfg); len(c) != 0 {
		t.Fatalf("identical configs should report no changes, got %v", c)
	}
}
