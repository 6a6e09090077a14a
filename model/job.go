package model

import "time"

// Job represents one unit of queued work against a Document.
//
// CreatedAt records when the job was first enqueued. ScheduledAt is the
// earliest time the job may be claimed — for a fresh job it defaults to
// CreatedAt; for a retried job it is pushed into the future by failJob's
// backoff.
//
// Job instances returned by the store package are snapshots of storage
// state; mutating fields directly does not change the underlying row.
type Job struct {
	Id         string
	DocumentId string
	Type       JobType

	Status      JobStatus
	Priority    int
	Attempts    int
	MaxAttempts int

	Payload []byte
	Result  []byte
	Error   string

	WorkerId *string

	ScheduledAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// IsTerminal reports whether the job has reached a status from which no
// further transition is possible without an explicit requeue.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
