package store

import (
	"math"
	"time"
)

// defaultOrphanThreshold is how long a job may sit in processing before
// cleanupOrphanedJobs treats it as abandoned by a dead worker, absent an
// Options.OrphanThreshold override.
const defaultOrphanThreshold = 5 * time.Minute

// jobRetryBackoff computes the delay before a failed-but-retryable job
// becomes eligible again: 2^attempts * 60s. It models the cost of
// re-running real work, distinct from orphanResetBackoff's fast lease
// recovery.
func jobRetryBackoff(attempts int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempts))) * 60 * time.Second
}

// orphanResetBackoff computes the delay before a reclaimed orphan job
// becomes eligible again: 2^attempts * 5s. Nobody is contesting the lease,
// so recovery can be far faster than a deliberate retry.
func orphanResetBackoff(attempts int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempts))) * 5 * time.Second
}
