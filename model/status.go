package model

import "fmt"

// DocumentStatus represents the lifecycle state of a Document.
//
// The state machine is:
//
//	Pending    -> Processing
//	Processing -> Completed | Failed
//	Completed  -> Archived
//
// DocUnknown is reserved as the zero value and indicates an unspecified
// status in filtering contexts.
type DocumentStatus uint8

const (
	DocUnknown DocumentStatus = iota
	DocPending
	DocProcessing
	DocCompleted
	DocFailed
	DocArchived
)

func (s DocumentStatus) String() string {
	switch s {
	case DocPending:
		return "pending"
	case DocProcessing:
		return "processing"
	case DocCompleted:
		return "completed"
	case DocFailed:
		return "failed"
	case DocArchived:
		return "archived"
	default:
		return "unknown"
	}
}

// ParseDocumentStatus converts a string representation into a DocumentStatus.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	switch s {
	case "pending":
		return DocPending, nil
	case "processing":
		return DocProcessing, nil
	case "completed":
		return DocCompleted, nil
	case "failed":
		return DocFailed, nil
	case "archived":
		return DocArchived, nil
	case "unknown", "":
		return DocUnknown, nil
	default:
		return 0, fmt.Errorf("model: unknown document status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s DocumentStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DocumentStatus) UnmarshalText(text []byte) error {
	v, err := ParseDocumentStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// JobType distinguishes the handler a Worker dispatches a Job to.
type JobType uint8

const (
	JobUnknown JobType = iota
	JobConvert
	JobArchive
)

func (t JobType) String() string {
	switch t {
	case JobConvert:
		return "convert"
	case JobArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// ParseJobType converts a string representation into a JobType.
func ParseJobType(s string) (JobType, error) {
	switch s {
	case "convert":
		return JobConvert, nil
	case "archive":
		return JobArchive, nil
	case "unknown", "":
		return JobUnknown, nil
	default:
		return 0, fmt.Errorf("model: unknown job type %q", s)
	}
}

func (t JobType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *JobType) UnmarshalText(text []byte) error {
	v, err := ParseJobType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// JobStatus represents the lifecycle state of a Job.
//
// Retrying is not materialized as a distinct status: a retry is a Pending
// job with a future ScheduledAt.
type JobStatus uint8

const (
	JobStatusUnknown JobStatus = iota
	JobStatusPending
	JobStatusProcessing
	JobStatusCompleted
	JobStatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case JobStatusPending:
		return "pending"
	case JobStatusProcessing:
		return "processing"
	case JobStatusCompleted:
		return "completed"
	case JobStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseJobStatus converts a string representation into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	switch s {
	case "pending":
		return JobStatusPending, nil
	case "processing":
		return JobStatusProcessing, nil
	case "completed":
		return JobStatusCompleted, nil
	case "failed":
		return JobStatusFailed, nil
	case "unknown", "":
		return JobStatusUnknown, nil
	default:
		return 0, fmt.Errorf("model: unknown job status %q", s)
	}
}

func (s JobStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *JobStatus) UnmarshalText(text []byte) error {
	v, err := ParseJobStatus(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// BatchStatus represents the derived lifecycle state of a Batch, recomputed
// from its child documents by store.UpdateBatchProgress.
type BatchStatus uint8

const (
	BatchStatusUnknown BatchStatus = iota
	BatchStatusPending
	BatchStatusProcessing
	BatchStatusCompleted
	BatchStatusFailed
)

func (s BatchStatus) String() string {
	switch s {
	case BatchStatusPending:
		return "pending"
	case BatchStatusProcessing:
		return "processing"
	case BatchStatusCompleted:
		return "completed"
	case BatchStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseBatchStatus converts a string representation into a BatchStatus.
func ParseBatchStatus(s string) (BatchStatus, error) {
	var v BatchStatus
	err := v.UnmarshalText([]byte(s))
	return v, err
}

func (s BatchStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *BatchStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = BatchStatusPending
	case "processing":
		*s = BatchStatusProcessing
	case "completed":
		*s = BatchStatusCompleted
	case "failed":
		*s = BatchStatusFailed
	case "unknown", "":
		*s = BatchStatusUnknown
	default:
		return fmt.Errorf("model: unknown batch status %q", text)
	}
	return nil
}
