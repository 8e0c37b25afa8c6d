package config

import (
	"fmt"
	"strings"
)

// Config is the on-disk application configuration.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "24h").
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	Cache    CacheConfig    `json:"cache,omitempty"`
	Prefetch PrefetchConfig `json:"prefetch,omitempty"`

	// Scheme is the bootstrap rotation used when storage is disabled or not
	// seeded yet. Once storage holds a scheme, the stored one wins.
	Scheme SchemeConfig `json:"scheme"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file,omitempty"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./shiftcal_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// CacheConfig tunes the engine caches.
//
// Defaults (when fields are omitted/zero):
//   - day_ttl: "24h"
//   - day_high_water: 1200
//   - snapshot_ttl: "24h"
type CacheConfig struct {
	DayTTL       string `json:"day_ttl,omitempty"`
	DayHighWater int    `json:"day_high_water,omitempty"`
	SnapshotTTL  string `json:"snapshot_ttl,omitempty"`
}

// PrefetchConfig controls the maintenance service (cache sweep + warm-up).
//
// SweepSchedule takes a cron spec or descriptor ("@hourly", "*/30 * * * *").
type PrefetchConfig struct {
	Enabled        bool   `json:"enabled"`
	SweepSchedule  string `json:"sweep_schedule,omitempty"`
	WarmDays       int    `json:"warm_days,omitempty"`
	WarmRatePerSec int    `json:"warm_rate_per_sec,omitempty"`
}

// SchemeConfig is the bootstrap scheme definition.
//
// TeamCount selects the standard roster layout; the pattern defaults to the
// standard 4-on/2-off table when Slots is empty.
type SchemeConfig struct {
	StartDate      string       `json:"start_date"`
	CycleLength    int          `json:"cycle_length"`
	PatternVersion int          `json:"pattern_version,omitempty"`
	TeamCount      int          `json:"team_count,omitempty"`
	Slots          []SchemeSlot `json:"slots,omitempty"`
}

type SchemeSlot struct {
	Position    int      `json:"position"`
	ShiftTypeID string   `json:"shift_type_id"`
	TeamIDs     []string `json:"team_ids"`
}

// Validate rejects configs that cannot possibly bootstrap an engine. Deep
// validation (pattern disjointness etc.) happens when the scheme is built.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Scheme.StartDate) == "" {
		return fmt.Errorf("scheme.start_date is required")
	}
	if c.Scheme.CycleLength < 1 {
		return fmt.Errorf("scheme.cycle_length must be >= 1, got %d", c.Scheme.CycleLength)
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	if _, err := ParseDurationField("cache.day_ttl", c.Cache.DayTTL); err != nil {
		return err
	}
	if _, err := ParseDurationField("cache.snapshot_ttl", c.Cache.SnapshotTTL); err != nil {
		return err
	}
	return nil
}
