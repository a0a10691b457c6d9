package entity

import "time"

const (
	JobStatusPending int32 = 1
	JobStatusDone    int32 = 10
	JobStatusFailed  int32 = 20
)

// Job is one unit of deferred work pulled from the shared queue by a
// worker process.
type Job struct {
	ID uint64

	Queue string
	Type  string

	// DedupeKey collapses repeat submissions: enqueueing with the same key
	// replaces any pending job carrying it.
	DedupeKey *string

	PayloadJSON string

	Status   int32
	Attempts int32
	RunAt    time.Time
	LastErr  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
