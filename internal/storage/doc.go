// Package storage provides the persistence used by the routine daemon.
//
// It currently supports:
//   - Submission audit appends (what was submitted, suppressed or dropped, and when)
//   - Submission dedup keys, so a restart mid-day does not resubmit today's tasks
package storage
