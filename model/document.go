package model

import "time"

// Document is a single source file submitted for Markdown conversion.
//
// Document instances returned by the store package are snapshots; mutating
// them does not change the underlying row. Transitions must be performed
// through the store package's own methods.
type Document struct {
	Id       string
	FileName string
	MimeType string
	FileSize int64
	BlobKey  string

	Content  *string
	Metadata map[string]any

	Status DocumentStatus
	Error  string

	CreatedAt   time.Time
	ProcessedAt *time.Time
	ArchivedAt  *time.Time

	RetentionDays int

	UserId  string
	ApiKey  string
	BatchId *string
}
