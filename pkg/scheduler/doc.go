// Package scheduler runs a window of scenarios with bounded concurrency
// under a global deadline.
//
// Run admits scenarios through a weighted semaphore, consumes results in
// arrival order and counts every finished scenario, accepted or failed.
// When the deadline passes the remaining scenarios are cancelled and
// neither merged nor counted.
//
// Recurring drives consecutive windows from a cron schedule, keeping the
// next window start in a Cursor database so restarts resume where the
// last tick stopped.
package scheduler
