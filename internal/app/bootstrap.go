package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shiftcal/internal/calendar"
	"shiftcal/internal/config"
	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
	"shiftcal/internal/storage"
	logx "shiftcal/pkg/logx"
)

// rotationData is everything the engine needs to start.
type rotationData struct {
	scheme  rotation.Scheme
	pattern *rotation.Pattern
	reg     *roster.Registry
	cat     *roster.Catalog
}

// buildFromConfig assembles the bootstrap rotation out of the scheme section.
// Custom slots override the standard pattern table.
func buildFromConfig(sc config.SchemeConfig) (rotationData, error) {
	var out rotationData

	start, err := calendar.ParseDate(sc.StartDate)
	if err != nil {
		return out, fmt.Errorf("scheme.start_date: %w", err)
	}

	teamCount := sc.TeamCount
	if teamCount <= 0 {
		teamCount = rotation.StandardTeamCount
	}
	teams, err := roster.StandardTeams(teamCount)
	if err != nil {
		return out, fmt.Errorf("scheme.team_count: %w", err)
	}
	reg, err := roster.NewRegistry(teams)
	if err != nil {
		return out, err
	}
	cat, err := roster.NewCatalog(roster.StandardShiftTypes())
	if err != nil {
		return out, err
	}

	var pattern *rotation.Pattern
	if len(sc.Slots) > 0 {
		slots := make([]rotation.Slot, 0, len(sc.Slots))
		for _, s := range sc.Slots {
			slots = append(slots, rotation.Slot{
				CyclePosition: s.Position,
				ShiftTypeID:   s.ShiftTypeID,
				TeamIDs:       s.TeamIDs,
			})
		}
		pattern, err = rotation.NewPattern(sc.CycleLength, slots)
		if err != nil {
			return out, err
		}
	} else {
		if sc.CycleLength != rotation.StandardCycleLength {
			return out, fmt.Errorf("scheme.cycle_length: standard pattern needs %d, got %d (supply slots for a custom cycle)",
				rotation.StandardCycleLength, sc.CycleLength)
		}
		pattern, err = rotation.StandardPattern(reg.IDs())
		if err != nil {
			return out, err
		}
	}

	out = rotationData{
		scheme: rotation.Scheme{
			Start:          start,
			CycleLength:    sc.CycleLength,
			PatternVersion: sc.PatternVersion,
			Revision:       uuid.NewString(),
		},
		pattern: pattern,
		reg:     reg,
		cat:     cat,
	}
	return out, nil
}

// loadOrSeed resolves the rotation against storage. A stored scheme wins over
// the config bootstrap; an empty store gets seeded from the config and the
// seed is audited.
func loadOrSeed(ctx context.Context, st storage.Store, sc config.SchemeConfig, log logx.Logger) (rotationData, error) {
	if st == nil {
		return buildFromConfig(sc)
	}

	scheme, pattern, err := st.LoadScheme(ctx)
	switch {
	case err == nil:
		return loadRoster(ctx, st, scheme, pattern)
	case errors.Is(err, storage.ErrNotSeeded):
		return seed(ctx, st, sc, log)
	default:
		return rotationData{}, fmt.Errorf("load scheme: %w", err)
	}
}

func loadRoster(ctx context.Context, st storage.Store, scheme rotation.Scheme, pattern *rotation.Pattern) (rotationData, error) {
	teams, err := st.LoadTeams(ctx)
	if err != nil {
		return rotationData{}, fmt.Errorf("load teams: %w", err)
	}
	reg, err := roster.NewRegistry(teams)
	if err != nil {
		return rotationData{}, fmt.Errorf("stored teams: %w", err)
	}
	shifts, err := st.LoadShiftTypes(ctx)
	if err != nil {
		return rotationData{}, fmt.Errorf("load shift types: %w", err)
	}
	cat, err := roster.NewCatalog(shifts)
	if err != nil {
		return rotationData{}, fmt.Errorf("stored shift types: %w", err)
	}
	return rotationData{scheme: scheme, pattern: pattern, reg: reg, cat: cat}, nil
}

func seed(ctx context.Context, st storage.Store, sc config.SchemeConfig, log logx.Logger) (rotationData, error) {
	data, err := buildFromConfig(sc)
	if err != nil {
		return rotationData{}, err
	}
	if err := st.SaveTeams(ctx, data.reg.All()); err != nil {
		return rotationData{}, fmt.Errorf("seed teams: %w", err)
	}
	if err := st.SaveShiftTypes(ctx, data.cat.All()); err != nil {
		return rotationData{}, fmt.Errorf("seed shift types: %w", err)
	}
	if err := st.SaveScheme(ctx, data.scheme, data.pattern); err != nil {
		return rotationData{}, fmt.Errorf("seed scheme: %w", err)
	}
	if err := st.AppendAudit(ctx, storage.AuditEntry{
		At:             time.Now().UTC(),
		Revision:       data.scheme.Revision,
		Action:         "seed",
		StartDate:      data.scheme.Start.String(),
		CycleLength:    data.scheme.CycleLength,
		PatternVersion: data.scheme.PatternVersion,
		Fingerprint:    data.pattern.Fingerprint(),
	}); err != nil && !log.IsZero() {
		log.Warn("seed audit entry failed", logx.Err(err))
	}
	if !log.IsZero() {
		log.Info("storage seeded",
			logx.String("start", data.scheme.Start.String()),
			logx.Int("cycle_length", data.scheme.CycleLength),
			logx.Int("teams", data.reg.Len()))
	}
	return data, nil
}
