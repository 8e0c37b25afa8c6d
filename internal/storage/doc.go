package storage

// Package storage is the persistence collaborator behind the engine.
//
// It supplies the configuration at startup (scheme + pattern, teams, shift
// types) and durably records scheme updates plus an audit trail of them.
// The engine never touches it directly except through engine.Persister.
//
// Drivers:
//   - "file": dependency-free JSON snapshot + append-only audit log
//   - "sqlite": SQLite database file
