// Package engine is the query facade of the shift rotation core.
//
// # Overview
//
// An Engine owns the active scheme (start date, cycle length, pattern table),
// the team registry and shift catalog, and the caches memoizing computed
// days. It is constructed explicitly and passed by reference; there is no
// package-level instance.
//
// # Reads
//
// Query operations (ScheduleForDate, IsWorkingDay, NextWorkingDay, ...) are
// safe for arbitrary concurrent use. The active configuration is one
// immutable snapshot behind an atomic pointer, so readers never block each
// other. Day-cache misses for the same date are coalesced with singleflight;
// a lost race recomputes an equal value and is only wasted work.
//
// # Updates
//
// UpdateScheme validates the new configuration against the current registry,
// swaps the snapshot and clears the day caches inside one short exclusive
// section, then persists through the optional Persister. A persistence
// failure is reported as a wrapped ErrPersistFailed but does not undo the
// in-memory swap: the engine keeps serving the new scheme.
//
// Cache entries are tagged with the snapshot version, so an entry computed
// under an older scheme can never satisfy a read made after the swap even if
// a clear raced with an in-flight Put.
package engine
