package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"shiftcal/internal/roster"
	"shiftcal/internal/rotation"
	"shiftcal/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Files:
//   - <prefix>.scheme.json  (scheme + pattern snapshot, atomically replaced)
//   - <prefix>.roster.json  (teams + shift types snapshot)
//   - <prefix>.audit.jsonl  (append-only JSON Lines)
type fileStore struct {
	log logx.Logger

	mu sync.Mutex

	schemePath string
	rosterPath string
	auditFile  *os.File
}

type rosterDoc struct {
	Teams      []teamDoc      `json:"teams"`
	ShiftTypes []shiftTypeDoc `json:"shift_types"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, base)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	af, err := os.OpenFile(prefix+".audit.jsonl", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	return &fileStore{
		log:        log,
		schemePath: prefix + ".scheme.json",
		rosterPath: prefix + ".roster.json",
		auditFile:  af,
	}, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile != nil {
		err := s.auditFile.Close()
		s.auditFile = nil
		return err
	}
	return nil
}

func (s *fileStore) LoadScheme(ctx context.Context) (rotation.Scheme, *rotation.Pattern, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc schemeDoc
	if err := readJSON(s.schemePath, &doc); err != nil {
		if os.IsNotExist(err) {
			return rotation.Scheme{}, nil, ErrNotSeeded
		}
		return rotation.Scheme{}, nil, err
	}
	return schemeFromDoc(doc)
}

func (s *fileStore) SaveScheme(ctx context.Context, scheme rotation.Scheme, p *rotation.Pattern) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.schemePath, schemeToDoc(scheme, p))
}

func (s *fileStore) LoadTeams(ctx context.Context) ([]roster.Team, error) {
	doc, err := s.loadRoster()
	if err != nil {
		return nil, err
	}
	if len(doc.Teams) == 0 {
		return nil, ErrNotSeeded
	}
	teams := make([]roster.Team, 0, len(doc.Teams))
	for _, td := range doc.Teams {
		teams = append(teams, teamFromDoc(td))
	}
	return teams, nil
}

func (s *fileStore) SaveTeams(ctx context.Context, teams []roster.Team) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readRosterLocked()
	doc.Teams = doc.Teams[:0]
	for _, t := range teams {
		doc.Teams = append(doc.Teams, teamToDoc(t))
	}
	return writeJSONAtomic(s.rosterPath, doc)
}

func (s *fileStore) LoadShiftTypes(ctx context.Context) ([]roster.ShiftType, error) {
	doc, err := s.loadRoster()
	if err != nil {
		return nil, err
	}
	if len(doc.ShiftTypes) == 0 {
		return nil, ErrNotSeeded
	}
	shifts := make([]roster.ShiftType, 0, len(doc.ShiftTypes))
	for _, sd := range doc.ShiftTypes {
		st, err := shiftTypeFromDoc(sd)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, st)
	}
	return shifts, nil
}

func (s *fileStore) SaveShiftTypes(ctx context.Context, shifts []roster.ShiftType) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.readRosterLocked()
	doc.ShiftTypes = doc.ShiftTypes[:0]
	for _, st := range shifts {
		doc.ShiftTypes = append(doc.ShiftTypes, shiftTypeToDoc(st))
	}
	return writeJSONAtomic(s.rosterPath, doc)
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *fileStore) loadRoster() (rosterDoc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc rosterDoc
	if err := readJSON(s.rosterPath, &doc); err != nil {
		if os.IsNotExist(err) {
			return rosterDoc{}, ErrNotSeeded
		}
		return rosterDoc{}, err
	}
	return doc, nil
}

// readRosterLocked reads the roster snapshot best-effort so a partial save
// (only teams, only shift types) keeps the other half intact.
func (s *fileStore) readRosterLocked() rosterDoc {
	var doc rosterDoc
	if err := readJSON(s.rosterPath, &doc); err != nil && !os.IsNotExist(err) {
		s.log.Debug("roster snapshot unreadable; rewriting", logx.Err(err))
	}
	return doc
}

func readJSON(path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(out)
}

func writeJSONAtomic(path string, v any) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
