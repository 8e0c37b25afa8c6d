package storage

import (
	"context"
	"errors"
	"strings"

	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
	"shiftcal/pkg/logx"
)

// Store is the persistence API the rest of the application depends on.
// It also satisfies engine.Persister.
type Store interface {
	LoadScheme(ctx context.Context) (rotation.Scheme, *rotation.Pattern, error)
	SaveScheme(ctx context.Context, s rotation.Scheme, p *rotation.Pattern) error
	LoadTeams(ctx context.Context) ([]roster.Team, error)
	SaveTeams(ctx context.Context, teams []roster.Team) error
	LoadShiftTypes(ctx context.Context) ([]roster.ShiftType, error)
	SaveShiftTypes(ctx context.Context, shifts []roster.ShiftType) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
