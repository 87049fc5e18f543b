// Package progress carries download progress from a worker goroutine to the
// chat message that displays it. Producers publish events without blocking;
// a single drain goroutine owns the throttling and the edit calls.
package progress

import "time"

type Status string

const (
	StatusDownloading Status = "downloading"
	StatusFinished    Status = "finished"
)

// Event is one snapshot of a download in flight.
type Event struct {
	Status     Status
	Downloaded int64
	// Total is the expected size in bytes, or 0 when the source does not
	// report one.
	Total int64
	// Speed is in bytes per second, or 0 when unknown.
	Speed float64
	// ETA is the estimated time remaining, or 0 when unknown.
	ETA time.Duration
}
