package model

import "time"

// Batch groups a set of Documents submitted together. Its Completed/Failed
// counters and Status are a derived projection recomputed from child
// documents by store.UpdateBatchProgress — they are never written directly
// by any other path.
type Batch struct {
	Id     string
	UserId string
	ApiKey string

	TotalDocuments     int
	CompletedDocuments int
	FailedDocuments    int

	Status   BatchStatus
	Priority int

	Metadata map[string]any

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// IsTerminal reports whether every document in the batch has reached a
// terminal status.
func (b *Batch) IsTerminal() bool {
	return b.CompletedDocuments+b.FailedDocuments >= b.TotalDocuments
}
