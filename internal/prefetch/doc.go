// Package prefetch runs background maintenance for the schedule engine:
// periodic cache sweeps on a cron schedule and rate-limited warm-up of
// upcoming days whenever the rotation data changes.
//
// The service is optional. When disabled the engine still works; days are
// simply computed on first request instead of ahead of time.
package prefetch
