package store

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/docflow/docflow/model"
)

type documentRow struct {
	bun.BaseModel `bun:"table:documents"`

	Id       string `bun:"id,pk"`
	FileName string `bun:"file_name,notnull"`
	MimeType string `bun:"mime_type,notnull"`
	FileSize int64  `bun:"file_size,notnull,default:0"`
	BlobKey  string `bun:"blob_key,notnull"`

	Content  *string        `bun:"content,nullzero"`
	Metadata map[string]any `bun:"metadata,type:jsonb,nullzero"`

	Status string `bun:"status,notnull,default:'pending'"`
	Error  string `bun:"error,notnull,default:''"`

	CreatedAt   time.Time  `bun:"created_at,notnull"`
	ProcessedAt *time.Time `bun:"processed_at,nullzero"`
	ArchivedAt  *time.Time `bun:"archived_at,nullzero"`

	RetentionDays int `bun:"retention_days,notnull,default:30"`

	UserId  string  `bun:"user_id,notnull,default:''"`
	ApiKey  string  `bun:"api_key,notnull,default:''"`
	BatchId *string `bun:"batch_id,nullzero"`
}

func (r *documentRow) toModel() *model.Document {
	status, _ := model.ParseDocumentStatus(r.Status)
	return &model.Document{
		Id:            r.Id,
		FileName:      r.FileName,
		MimeType:      r.MimeType,
		FileSize:      r.FileSize,
		BlobKey:       r.BlobKey,
		Content:       r.Content,
		Metadata:      r.Metadata,
		Status:        status,
		Error:         r.Error,
		CreatedAt:     r.CreatedAt,
		ProcessedAt:   r.ProcessedAt,
		ArchivedAt:    r.ArchivedAt,
		RetentionDays: r.RetentionDays,
		UserId:        r.UserId,
		ApiKey:        r.ApiKey,
		BatchId:       r.BatchId,
	}
}

func documentFromModel(d *model.Document) *documentRow {
	return &documentRow{
		Id:            d.Id,
		FileName:      d.FileName,
		MimeType:      d.MimeType,
		FileSize:      d.FileSize,
		BlobKey:       d.BlobKey,
		Content:       d.Content,
		Metadata:      d.Metadata,
		Status:        d.Status.String(),
		Error:         d.Error,
		CreatedAt:     d.CreatedAt,
		ProcessedAt:   d.ProcessedAt,
		ArchivedAt:    d.ArchivedAt,
		RetentionDays: d.RetentionDays,
		UserId:        d.UserId,
		ApiKey:        d.ApiKey,
		BatchId:       d.BatchId,
	}
}

type jobRow struct {
	bun.BaseModel `bun:"table:jobs"`

	Id         string `bun:"id,pk"`
	DocumentId string `bun:"document_id,notnull"`
	Type       string `bun:"type,notnull"`

	Status      string `bun:"status,notnull,default:'pending'"`
	Priority    int    `bun:"priority,notnull,default:0"`
	Attempts    int    `bun:"attempts,notnull,default:0"`
	MaxAttempts int    `bun:"max_attempts,notnull,default:3"`

	Payload []byte `bun:"payload,type:blob,nullzero"`
	Result  []byte `bun:"result,type:blob,nullzero"`
	Error   string `bun:"error,notnull,default:''"`

	WorkerId *string `bun:"worker_id,nullzero"`

	ScheduledAt time.Time  `bun:"scheduled_at,notnull"`
	StartedAt   *time.Time `bun:"started_at,nullzero"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
}

func (r *jobRow) toModel() *model.Job {
	status, _ := model.ParseJobStatus(r.Status)
	jobType, _ := model.ParseJobType(r.Type)
	return &model.Job{
		Id:          r.Id,
		DocumentId:  r.DocumentId,
		Type:        jobType,
		Status:      status,
		Priority:    r.Priority,
		Attempts:    r.Attempts,
		MaxAttempts: r.MaxAttempts,
		Payload:     r.Payload,
		Result:      r.Result,
		Error:       r.Error,
		WorkerId:    r.WorkerId,
		ScheduledAt: r.ScheduledAt,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
	}
}

type batchRow struct {
	bun.BaseModel `bun:"table:batches"`

	Id     string `bun:"id,pk"`
	UserId string `bun:"user_id,notnull,default:''"`
	ApiKey string `bun:"api_key,notnull,default:''"`

	TotalDocuments     int `bun:"total_documents,notnull,default:0"`
	CompletedDocuments int `bun:"completed_documents,notnull,default:0"`
	FailedDocuments    int `bun:"failed_documents,notnull,default:0"`

	Status   string `bun:"status,notnull,default:'pending'"`
	Priority int    `bun:"priority,notnull,default:0"`

	Metadata map[string]any `bun:"metadata,type:jsonb,nullzero"`

	CreatedAt   time.Time  `bun:"created_at,notnull"`
	CompletedAt *time.Time `bun:"completed_at,nullzero"`
}

func (r *batchRow) toModel() *model.Batch {
	status, _ := model.ParseBatchStatus(r.Status)
	return &model.Batch{
		Id:                 r.Id,
		UserId:             r.UserId,
		ApiKey:             r.ApiKey,
		TotalDocuments:     r.TotalDocuments,
		CompletedDocuments: r.CompletedDocuments,
		FailedDocuments:    r.FailedDocuments,
		Status:             status,
		Priority:           r.Priority,
		Metadata:           r.Metadata,
		CreatedAt:          r.CreatedAt,
		CompletedAt:        r.CompletedAt,
	}
}

type usageRow struct {
	bun.BaseModel `bun:"table:usage_records"`

	Id         string `bun:"id,pk"`
	DocumentId string `bun:"document_id,notnull"`
	Operation  string `bun:"operation,notnull"`

	InputTokens  int `bun:"input_tokens,notnull,default:0"`
	OutputTokens int `bun:"output_tokens,notnull,default:0"`

	BaseCostCents  int `bun:"base_cost_cents,notnull,default:0"`
	MarginRatePct  int `bun:"margin_rate_pct,notnull,default:0"`
	TotalCostCents int `bun:"total_cost_cents,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (r *usageRow) toModel() *model.Usage {
	return &model.Usage{
		Id:             r.Id,
		DocumentId:     r.DocumentId,
		Operation:      r.Operation,
		InputTokens:    r.InputTokens,
		OutputTokens:   r.OutputTokens,
		BaseCostCents:  r.BaseCostCents,
		MarginRatePct:  r.MarginRatePct,
		TotalCostCents: r.TotalCostCents,
		CreatedAt:      r.CreatedAt,
	}
}
