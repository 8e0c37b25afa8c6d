package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
	"shiftcal/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadScheme(ctx context.Context) (rotation.Scheme, *rotation.Pattern, error) {
	var doc schemeDoc
	err := s.db.QueryRowContext(ctx,
		`SELECT start_date, cycle_length, pattern_version, COALESCE(revision, '') FROM scheme WHERE id = 1`,
	).Scan(&doc.StartDate, &doc.CycleLength, &doc.PatternVersion, &doc.Revision)
	if errors.Is(err, sql.ErrNoRows) {
		return rotation.Scheme{}, nil, ErrNotSeeded
	}
	if err != nil {
		return rotation.Scheme{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, shift_type_id, team_ids FROM pattern_slots ORDER BY position, shift_type_id`)
	if err != nil {
		return rotation.Scheme{}, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sd slotDoc
		var teamsJSON string
		if err := rows.Scan(&sd.Position, &sd.ShiftTypeID, &teamsJSON); err != nil {
			return rotation.Scheme{}, nil, err
		}
		if err := json.Unmarshal([]byte(teamsJSON), &sd.TeamIDs); err != nil {
			return rotation.Scheme{}, nil, fmt.Errorf("slot %d/%s team_ids: %w", sd.Position, sd.ShiftTypeID, err)
		}
		doc.Slots = append(doc.Slots, sd)
	}
	if err := rows.Err(); err != nil {
		return rotation.Scheme{}, nil, err
	}
	return schemeFromDoc(doc)
}

func (s *sqliteStore) SaveScheme(ctx context.Context, scheme rotation.Scheme, p *rotation.Pattern) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scheme(id, start_date, cycle_length, pattern_version, revision, updated_at)
		 VALUES(1,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   start_date=excluded.start_date,
		   cycle_length=excluded.cycle_length,
		   pattern_version=excluded.pattern_version,
		   revision=excluded.revision,
		   updated_at=excluded.updated_at`,
		scheme.Start.String(), scheme.CycleLength, scheme.PatternVersion,
		nullStr(scheme.Revision), time.Now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM pattern_slots`); err != nil {
		return err
	}
	for _, slot := range p.Slots() {
		teamsJSON, err := json.Marshal(slot.TeamIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pattern_slots(position, shift_type_id, team_ids) VALUES(?,?,?)`,
			slot.CyclePosition, slot.ShiftTypeID, string(teamsJSON),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadTeams(ctx context.Context) ([]roster.Team, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, half_a, half_b FROM teams ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []roster.Team
	for rows.Next() {
		var td teamDoc
		if err := rows.Scan(&td.ID, &td.HalfA, &td.HalfB); err != nil {
			return nil, err
		}
		teams = append(teams, teamFromDoc(td))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, ErrNotSeeded
	}
	return teams, nil
}

func (s *sqliteStore) SaveTeams(ctx context.Context, teams []roster.Team) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM teams`); err != nil {
		return err
	}
	for i, t := range teams {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO teams(id, half_a, half_b, pos) VALUES(?,?,?,?)`,
			t.ID, t.HalfA.Name, t.HalfB.Name, i,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LoadShiftTypes(ctx context.Context) ([]roster.ShiftType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, start_time, duration_minutes, COALESCE(color_hex, '') FROM shift_types ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []roster.ShiftType
	for rows.Next() {
		var sd shiftTypeDoc
		if err := rows.Scan(&sd.ID, &sd.Name, &sd.StartTime, &sd.DurationMinutes, &sd.ColorHex); err != nil {
			return nil, err
		}
		st, err := shiftTypeFromDoc(sd)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, ErrNotSeeded
	}
	return shifts, nil
}

func (s *sqliteStore) SaveShiftTypes(ctx context.Context, shifts []roster.ShiftType) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM shift_types`); err != nil {
		return err
	}
	for i, st := range shifts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shift_types(id, name, start_time, duration_minutes, color_hex, pos) VALUES(?,?,?,?,?,?)`,
			st.ID, st.Name, st.StartTime.String(), st.DurationMinutes, nullStr(st.ColorHex), i,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit(at, revision, action, start_date, cycle_length, pattern_version, fingerprint, note)
		 VALUES(?,?,?,?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), nullStr(e.Revision), e.Action, nullStr(e.StartDate),
		e.CycleLength, e.PatternVersion, int64(e.Fingerprint), nullStr(e.Note),
	)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
