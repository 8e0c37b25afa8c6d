package config

import (
	"reflect"
	"sort"
	"strings"

	logx "shiftcal/pkg/logx"
)

// SummarizeChange returns a compact list of changed sections and structured
// attrs for logging the reload.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	// Logging
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	// Storage. Nil means disabled.
	var oDriver, nDriver, oBusy, nBusy string
	var oPathSet, nPathSet bool
	if oldCfg.Storage != nil {
		oDriver = strings.TrimSpace(oldCfg.Storage.Driver)
		oBusy = strings.TrimSpace(oldCfg.Storage.BusyTimeout)
		oPathSet = strings.TrimSpace(oldCfg.Storage.Path) != ""
	}
	if newCfg.Storage != nil {
		nDriver = strings.TrimSpace(newCfg.Storage.Driver)
		nBusy = strings.TrimSpace(newCfg.Storage.BusyTimeout)
		nPathSet = strings.TrimSpace(newCfg.Storage.Path) != ""
	}
	if oDriver != nDriver || oBusy != nBusy || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
		)
	}

	// Cache
	if oldCfg.Cache != newCfg.Cache {
		changed = append(changed, "cache")
		attrs = append(attrs,
			logx.String("cache.day_ttl", strings.TrimSpace(newCfg.Cache.DayTTL)),
			logx.Int("cache.day_high_water", newCfg.Cache.DayHighWater),
			logx.String("cache.snapshot_ttl", strings.TrimSpace(newCfg.Cache.SnapshotTTL)),
		)
	}

	// Prefetch
	if oldCfg.Prefetch != newCfg.Prefetch {
		changed = append(changed, "prefetch")
		attrs = append(attrs,
			logx.Bool("prefetch.enabled", newCfg.Prefetch.Enabled),
			logx.String("prefetch.sweep_schedule", strings.TrimSpace(newCfg.Prefetch.SweepSchedule)),
			logx.Int("prefetch.warm_days", newCfg.Prefetch.WarmDays),
		)
	}

	// Scheme (slots compared structurally)
	if oldCfg.Scheme.StartDate != newCfg.Scheme.StartDate ||
		oldCfg.Scheme.CycleLength != newCfg.Scheme.CycleLength ||
		oldCfg.Scheme.PatternVersion != newCfg.Scheme.PatternVersion ||
		oldCfg.Scheme.TeamCount != newCfg.Scheme.TeamCount ||
		!reflect.DeepEqual(oldCfg.Scheme.Slots, newCfg.Scheme.Slots) {
		changed = append(changed, "scheme")
		attrs = append(attrs,
			logx.String("scheme.start_date", newCfg.Scheme.StartDate),
			logx.Int("scheme.cycle_length", newCfg.Scheme.CycleLength),
			logx.Int("scheme.slot_count", len(newCfg.Scheme.Slots)),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
